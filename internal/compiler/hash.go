package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// Fingerprint computes a stable SHA-256 of the graph's JSON form.
// Node and edge order are part of the fingerprint since they change the compiled output.
func Fingerprint(g domain.Graph) (string, error) {
	if g.Nodes == nil {
		g.Nodes = []domain.Node{}
	}
	if g.Edges == nil {
		g.Edges = []domain.Edge{}
	}
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to serialize graph for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
