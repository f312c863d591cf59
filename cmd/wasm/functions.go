//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/mmcat/resultshape"
	"github.com/mmcat/resultshape/pkg/planfmt"
	"github.com/mmcat/resultshape/pkg/playground"
	"gopkg.in/yaml.v3"
)

// ReshapeDocument runs a playground document and returns its panels as JSON.
func ReshapeDocument(text string) (string, error) {
	result, err := playground.Reshape(context.Background(), text)
	if err != nil {
		return "", errors.New(playground.FormatError(err))
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(out), nil
}

// FormatPlan compiles a source and a target structure, given as JSON or
// YAML, and returns the plan listing.
func FormatPlan(sourceText, targetText string) (string, error) {
	var source, target resultshape.Structure
	if err := yaml.Unmarshal([]byte(sourceText), &source); err != nil {
		return "", fmt.Errorf("failed to parse source structure: %w", err)
	}
	if err := yaml.Unmarshal([]byte(targetText), &target); err != nil {
		return "", fmt.Errorf("failed to parse target structure: %w", err)
	}
	plan, err := resultshape.Compile(&source, &target)
	if err != nil {
		return "", errors.New(playground.FormatError(err))
	}
	return planfmt.Format(plan, planfmt.Config{Header: true}), nil
}

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			go func() {
				result, err := fn(args)
				if err != nil {
					reject.Invoke(js.Global().Get("Error").New(err.Error()))
					return
				}
				resolve.Invoke(result)
			}()

			return nil
		})

		return js.Global().Get("Promise").New(handler)
	})
}

func main() {
	js.Global().Set("ReshapeDocument", promisify(func(args []js.Value) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("ReshapeDocument: expected 1 arg (document), got %v", len(args))
		}
		return ReshapeDocument(args[0].String())
	}))

	js.Global().Set("FormatPlan", promisify(func(args []js.Value) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("FormatPlan: expected 2 args (source, target), got %v", len(args))
		}
		return FormatPlan(args[0].String(), args[1].String())
	}))

	<-make(chan bool)
}
