package domain

import "errors"

// ErrTemplateNotFound is returned when a template name is unknown to a loader.
var ErrTemplateNotFound = errors.New("template not found")

// Template is a reusable graph fragment that can be imported into a document.
type Template struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Graph       Graph    `json:"graph"`
}
