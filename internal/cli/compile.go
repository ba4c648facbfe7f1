package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/botcanvas/pkg/attachment"
	"github.com/aretw0/botcanvas/pkg/editor"
)

// RunCompile writes the conversation definition of the snapshot at path.
func RunCompile(w io.Writer, path string, opts Options) error {
	eng := newEngine(opts)
	g, err := loadGraph(eng, path, opts)
	if err != nil {
		return err
	}
	def, err := eng.Compile(g)
	if err != nil {
		return err
	}
	return writeJSON(w, def)
}

// RunExport lints and compiles the snapshot at path and writes main.json
// plus the attachment payloads into outDir. Images go to images/ and
// every other file to files/.
func RunExport(path, outDir string, opts Options) (*editor.Bundle, error) {
	eng := newEngine(opts)
	g, err := loadGraph(eng, path, opts)
	if err != nil {
		return nil, err
	}
	bundle, err := eng.Export(g)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	main, err := os.Create(filepath.Join(outDir, "main.json"))
	if err != nil {
		return nil, err
	}
	defer main.Close()
	if err := writeJSON(main, bundle.Definition); err != nil {
		return nil, err
	}

	for name, data := range bundle.Payloads {
		folder := "files"
		if attachment.IsImage(name) {
			folder = "images"
		}
		dir := filepath.Join(outDir, folder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return bundle, nil
}

// RunGraph writes the Mermaid flowchart of the snapshot at path.
func RunGraph(w io.Writer, path string, opts Options) error {
	eng := newEngine(opts)
	g, err := loadGraph(eng, path, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, eng.Mermaid(g))
	return err
}

// RunConnect reports whether source -> target may be connected in the snapshot at path.
func RunConnect(w io.Writer, path, source, target string, opts Options) (bool, error) {
	eng := newEngine(opts)
	g, err := loadGraph(eng, path, opts)
	if err != nil {
		return false, err
	}
	v := eng.CheckConnection(g, source, target)
	mark := "✅"
	if !v.Allowed {
		mark = "❌"
	}
	fmt.Fprintf(w, "%s %s -> %s: %s (%s)\n", mark, source, target, v.Rule, v.Reason)
	return v.Allowed, nil
}
