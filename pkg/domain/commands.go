package domain

import (
	"encoding/json"
	"fmt"
)

// Command is an explicit editor mutation.
// Commands replace ambient UI events: a caller builds one and hands it to the editor.
type Command interface {
	CommandName() string
}

// Command names used by the JSON envelope.
const (
	CmdAddNode           = "add_node"
	CmdConnect           = "connect"
	CmdDisconnect        = "disconnect"
	CmdRenameNode        = "rename_node"
	CmdDeleteNode        = "delete_node"
	CmdMoveNode          = "move_node"
	CmdSetChecklistItems = "set_checklist_items"
	CmdAddAttachment     = "add_attachment"
	CmdRemoveAttachment  = "remove_attachment"
)

// AddNode creates a node. An empty ID is generated; an empty Label gets the kind default.
type AddNode struct {
	ID       string   `json:"id,omitempty"`
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label,omitempty"`
	Position Position `json:"position"`
}

// Connect proposes an edge. Illegal connections are dropped silently.
type Connect struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Disconnect removes the edge source -> target.
type Disconnect struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// RenameNode replaces the label of a node.
type RenameNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DeleteNode removes a node and every edge touching it.
type DeleteNode struct {
	ID string `json:"id"`
}

// MoveNode updates the canvas position of a node.
type MoveNode struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

// SetChecklistItems replaces the items of a checklist node.
type SetChecklistItems struct {
	ID    string          `json:"id"`
	Items []ChecklistItem `json:"items"`
}

// AddAttachment appends an attachment to a question or answer node.
type AddAttachment struct {
	NodeID     string     `json:"nodeId"`
	Attachment Attachment `json:"attachment"`
}

// RemoveAttachment removes an attachment by id.
type RemoveAttachment struct {
	NodeID       string `json:"nodeId"`
	AttachmentID string `json:"attachmentId"`
}

func (AddNode) CommandName() string           { return CmdAddNode }
func (Connect) CommandName() string           { return CmdConnect }
func (Disconnect) CommandName() string        { return CmdDisconnect }
func (RenameNode) CommandName() string        { return CmdRenameNode }
func (DeleteNode) CommandName() string        { return CmdDeleteNode }
func (MoveNode) CommandName() string          { return CmdMoveNode }
func (SetChecklistItems) CommandName() string { return CmdSetChecklistItems }
func (AddAttachment) CommandName() string     { return CmdAddAttachment }
func (RemoveAttachment) CommandName() string  { return CmdRemoveAttachment }

// CommandEnvelope is the wire form of a command.
type CommandEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeCommand wraps a command into its envelope.
func EncodeCommand(cmd Command) (CommandEnvelope, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return CommandEnvelope{}, fmt.Errorf("failed to marshal %s: %w", cmd.CommandName(), err)
	}
	return CommandEnvelope{Type: cmd.CommandName(), Payload: payload}, nil
}

// DecodeCommand resolves an envelope into its concrete command.
func DecodeCommand(env CommandEnvelope) (Command, error) {
	var cmd Command
	switch env.Type {
	case CmdAddNode:
		cmd = &AddNode{}
	case CmdConnect:
		cmd = &Connect{}
	case CmdDisconnect:
		cmd = &Disconnect{}
	case CmdRenameNode:
		cmd = &RenameNode{}
	case CmdDeleteNode:
		cmd = &DeleteNode{}
	case CmdMoveNode:
		cmd = &MoveNode{}
	case CmdSetChecklistItems:
		cmd = &SetChecklistItems{}
	case CmdAddAttachment:
		cmd = &AddAttachment{}
	case CmdRemoveAttachment:
		cmd = &RemoveAttachment{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, cmd); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidCommand, env.Type, err)
		}
	}
	return deref(cmd), nil
}

func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *AddNode:
		return *c
	case *Connect:
		return *c
	case *Disconnect:
		return *c
	case *RenameNode:
		return *c
	case *DeleteNode:
		return *c
	case *MoveNode:
		return *c
	case *SetChecklistItems:
		return *c
	case *AddAttachment:
		return *c
	case *RemoveAttachment:
		return *c
	default:
		return cmd
	}
}
