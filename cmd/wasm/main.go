//go:build js && wasm

// Command wasm exposes the parabolic smoother to the browser via
// WebAssembly. After loading, it registers a global JavaScript function:
//
//	smoothPath(jsonString) -> jsonString
//
// The input and output are JSON-encoded SmoothingInput and SmoothingResult
// respectively, matching the same contract used by the CLI.
package main

import (
	"syscall/js"

	"github.com/cxd309/parabolic-smoother/internal/smoother"
)

func main() {
	js.Global().Set("smoothPath", js.FuncOf(smoothPath))
	select {} // keep the WASM module alive until the page is closed
}

func smoothPath(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := smoother.PlanPathJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}
