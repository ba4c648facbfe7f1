/*
Package domain contains the core domain models of the botcanvas engine.

It defines the dialogue graph drawn on the editor canvas and the artifacts the
engine derives from it: the compiled conversation tree and the lint findings
that gate export. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: A point on the canvas (start, question, answer or checklist).
  - Edge: A directed connection between two nodes; its meaning derives from the endpoint kinds.
  - Graph: The node and edge collections plus pure neighbourhood queries.
  - ConversationNode: One question of the compiled, exportable conversation tree.
  - Finding: A lint result, either an error (blocks export) or a warning.
  - Command: An explicit editor mutation (rename, delete, connect...).
*/
package domain
