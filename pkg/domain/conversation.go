package domain

// Checklist is the compiled form of a checklist node.
type Checklist struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// AttachmentRef is the compiled form of an attachment: the payload itself
// travels next to the definition, keyed by ID.
type AttachmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConversationNode is one question of the compiled conversation tree.
type ConversationNode struct {
	ID          string             `json:"id"`
	Text        string             `json:"text"`
	Answer      *string            `json:"answer,omitempty"`
	Checklist   *Checklist         `json:"checklist,omitempty"`
	Attachments []AttachmentRef    `json:"attachments,omitempty"`
	Children    []ConversationNode `json:"children"`
}

// ConversationDefinition is the exported document consumed by bot runtimes.
type ConversationDefinition struct {
	Questions []ConversationNode `json:"questions"`
}
