package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned when a command references an unknown node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNodeID is returned when a node id is already taken.
var ErrDuplicateNodeID = errors.New("duplicate node id")

// ErrStartImmutable is returned when a command tries to add, delete or retype the start node.
var ErrStartImmutable = errors.New("start node cannot be modified this way")

// ErrInvalidKind is returned for unknown node kinds.
var ErrInvalidKind = errors.New("invalid node kind")

// ErrInvalidCommand is returned when a command cannot be decoded or does not apply to the target node.
var ErrInvalidCommand = errors.New("invalid command")

// ErrDocumentNotFound is returned when a document ID cannot be found in the store.
var ErrDocumentNotFound = errors.New("document not found")

// ErrVersionConflict is returned when a document changed since the caller last read it.
var ErrVersionConflict = errors.New("document version conflict")

// ErrExportBlocked is returned when lint reports at least one error finding.
var ErrExportBlocked = errors.New("export blocked by lint errors")

// ErrStructural classifies graph shape errors (cycles, missing root, dangling edges).
var ErrStructural = errors.New("structural error")

// ErrSchema classifies malformed snapshots.
var ErrSchema = errors.New("schema error")

// StructuralError describes a graph that cannot be compiled.
type StructuralError struct {
	Kind    string
	Msg     string
	NodeIDs []string
}

func (e *StructuralError) Error() string {
	if len(e.NodeIDs) == 0 {
		return fmt.Sprintf("structural error [%s]: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("structural error [%s]: %s (%s)", e.Kind, e.Msg, strings.Join(e.NodeIDs, " -> "))
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// SchemaError describes an invalid field in a snapshot.
type SchemaError struct {
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: %s", e.Field, e.Msg)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// ExportBlockedError carries the findings that prevented an export.
type ExportBlockedError struct {
	Findings Findings
}

func (e *ExportBlockedError) Error() string {
	return fmt.Sprintf("%s: %d error(s)", ErrExportBlocked, len(e.Findings.Errors()))
}

func (e *ExportBlockedError) Unwrap() error {
	return ErrExportBlocked
}
