/*
Package botcanvas validates, lints and compiles the dialogue graphs drawn on a
chatbot-authoring canvas.

A graph is made of a single start node, questions, answers and checklists.
Editors propose connections one at a time and the connection rules decide
which edges may exist; the lint engine reports what is still missing before a
conversation can be shipped; the compiler turns the flat graph into the
nested conversation tree consumed by bot runtimes.

# Architecture

The core is pure: pkg/domain holds the model, internal/validator the
connection rules, internal/lint the findings and internal/compiler the
hierarchy compiler and snapshot parser. Hosts wrap it through adapters: an
HTTP API and an MCP server, in-memory and Redis document stores, and a Loam
template library.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/botcanvas"
	)

	func main() {
		eng := botcanvas.New()

		g, err := eng.Load("./support.json")
		if err != nil {
			log.Fatal(err)
		}

		for _, f := range eng.Lint(g) {
			fmt.Printf("%s: %s\n", f.Severity, f.Message)
		}

		bundle, err := eng.Export(g)
		if err != nil {
			log.Fatal(err) // blocked by error findings
		}
		fmt.Println(bundle.Fingerprint)
	}
*/
package botcanvas
