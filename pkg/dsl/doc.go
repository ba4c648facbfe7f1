/*
Package dsl provides a Go DSL for programmatically constructing dialogue graphs.

It allows developers to define conversation trees using a fluent builder
instead of drawing them on the canvas or writing JSON snapshots by hand.
This is particularly useful for templates, unit testing and generated flows.

Example usage:

	package main

	import (
		"github.com/aretw0/botcanvas/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		greet := b.Question("q_greet", "Hi! Do you need help?").
			Answer("a_greet", "Sure, tell me more.")

		greet.Ask("q_steps", "Ready to start?").
			Checklist("c_steps", "Before you begin", "Open the app", "Log in")

		g, err := b.Build()
		// ... hand g to editor.FromGraph or compiler.Definition
	}

Edges added by the builder are not checked against the connection rules,
so deliberately broken graphs can be built for tests with Orphan and Edge.
*/
package dsl
