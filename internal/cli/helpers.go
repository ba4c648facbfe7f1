package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// ErrLintFailed is returned when a snapshot has error findings.
var ErrLintFailed = errors.New("lint failed")

// Options are shared by every command that reads a snapshot.
type Options struct {
	// Format forces the snapshot encoding; empty picks it from the extension.
	Format string
	Debug  bool
}

func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

func newEngine(opts Options) *botcanvas.Engine {
	return botcanvas.New(botcanvas.WithLogger(createLogger(opts.Debug)))
}

// loadGraph reads a snapshot from path, or from stdin when path is "-".
func loadGraph(eng *botcanvas.Engine, path string, opts Options) (domain.Graph, error) {
	if path != "-" && opts.Format == "" {
		return eng.Load(path)
	}

	format := compiler.FormatJSON
	if opts.Format != "" {
		f, err := compiler.ParseFormat(opts.Format)
		if err != nil {
			return domain.Graph{}, err
		}
		format = f
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return eng.Parse(data, format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
