//go:build js && wasm

// Package main provides WASM bindings for formwalk.
// This lets a browser form re-evaluate visibility and required fields as the
// user types.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/dlovans/formwalk/pkg/formwalk"
)

func main() {
	js.Global().Set("FormwalkRun", js.FuncOf(formwalkRun))
	js.Global().Set("FormwalkRequired", js.FuncOf(formwalkRequired))

	// Keep the Go runtime alive
	select {}
}

// formwalkRun wraps formwalk.Run.
// Usage: FormwalkRun(formJson, answersJson, externalJson?) -> { result: object, error?: string }
func formwalkRun(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormwalkRun requires at least 2 arguments: formJson, answersJson")
	}

	external := ""
	if len(args) > 2 && args[2].Type() == js.TypeString {
		external = args[2].String()
	}

	result, err := formwalk.Run(args[0].String(), args[1].String(), external)
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(result)
}

// formwalkRequired wraps formwalk.RunRequired.
// Usage: FormwalkRequired(formJson, answersJson) -> { result: string[], error?: string }
func formwalkRequired(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeError("FormwalkRequired requires 2 arguments: formJson, answersJson")
	}

	result, err := formwalk.RunRequired(args[0].String(), args[1].String())
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(result)
}

// makeError creates a JS-friendly error response
func makeError(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}

// makeResult creates a JS-friendly success response
func makeResult(jsonStr string) map[string]any {
	// Hand JS an object rather than a string
	var result any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return map[string]any{
			"result": jsonStr,
		}
	}

	return map[string]any{
		"result": result,
	}
}
