package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/compiler"
)

// RunTemplate lists the templates of the Loam library in dir, or writes the
// snapshot of one template when name is given.
func RunTemplate(ctx context.Context, w io.Writer, dir, name string, opts Options) error {
	loader, err := botcanvas.OpenTemplates(dir)
	if err != nil {
		return err
	}

	if name == "" {
		templates, err := loader.Templates(ctx)
		if err != nil {
			return err
		}
		for _, t := range templates {
			line := t.Name
			if t.Description != "" {
				line += " - " + t.Description
			}
			if len(t.Tags) > 0 {
				line += " [" + strings.Join(t.Tags, ", ") + "]"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	}

	tmpl, err := loader.Template(ctx, name)
	if err != nil {
		return err
	}
	format := compiler.FormatJSON
	if opts.Format != "" {
		if format, err = compiler.ParseFormat(opts.Format); err != nil {
			return err
		}
	}
	return compiler.Encode(w, tmpl.Graph, format)
}
