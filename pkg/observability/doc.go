/*
Package observability provides tools for monitoring the botcanvas editor.

It includes Prometheus metrics fed by editor hooks (node and connection
activity) and by the lint and export paths, plus logging hooks that write
every graph mutation as a structured slog record.
*/
package observability
