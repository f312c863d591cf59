// Package resultshape models the result structures of a federated query plan
// and reshapes hierarchical data from one structure into another.
//
// A Structure tree describes the output shape of one query-plan node. Given a
// source and a target structure, Compile produces a Plan: a linear step
// program that walks data shaped like the source and builds data shaped like
// the target. Plans rename fields, collapse nested list levels and re-root
// (denormalize) instances.
package resultshape

import (
	"context"
	"fmt"
)

// Reshape compiles a plan for the pair and transforms input with it. Callers
// reshaping many instances should compile once, or use a PlanCache.
//
// Example:
//
//	out, err := resultshape.Reshape(context.Background(), source, target, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
func Reshape(ctx context.Context, source, target *Structure, input any, opts ...Options) (any, error) {
	plan, err := Compile(source, target, opts...)
	if err != nil {
		return nil, err
	}
	out, err := plan.TransformContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to reshape: %w", err)
	}
	return out, nil
}
