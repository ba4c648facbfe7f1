/*
Package ports defines the driven ports (interfaces) of the botcanvas core.

These interfaces decouple the editing and export logic from external
implementations, allowing documents to live in memory, in Redis, or behind
an encrypting middleware, and templates to come from Go code or a Loam
repository.

# Key Interfaces

  - GraphStore: Responsible for persisting and loading canvas documents.
  - TemplateLoader: Responsible for listing and loading reusable graph templates.
  - DistributedLocker: Provides distributed locking for concurrent document edits.
*/
package ports
