/*
Package session implements document management and persistence orchestration.

It provides high-level abstractions for handling concurrent edits of canvas
documents across multiple replicas, integrating per-document in-process locks
with distributed locking, optimistic versioning and long-term storage adapters.
Every successful edit produces a GraphDiff that listeners (such as the HTTP
event stream) can forward to connected editors.
*/
package session
