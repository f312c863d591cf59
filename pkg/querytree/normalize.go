package querytree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmcat/resultshape"
	"github.com/panjf2000/ants/v2"
)

// ErrUnsupported is returned by Evaluate for node kinds whose evaluation
// belongs to the datasources.
var ErrUnsupported = errors.New("node kind cannot be evaluated here")

// Result is the data a plan node produced together with its shape.
type Result struct {
	Structure *resultshape.Structure
	Data      any
}

// Fetcher supplies the result of a datasource node.
type Fetcher func(ctx context.Context, n *Datasource) (Result, error)

// Normalizer reshapes node results into the shapes their consumers need.
// Plans come from a shared cache and union branches are reshaped on a
// bounded worker pool.
type Normalizer struct {
	cache  *resultshape.PlanCache
	pool   *ants.Pool
	logger resultshape.Logger
}

// NewNormalizer creates a normalizer running at most workers branch
// reshapes at a time.
func NewNormalizer(cache *resultshape.PlanCache, workers int, logger resultshape.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = resultshape.NopLogger()
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logger.Errorf("branch reshape panic: %v", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Normalizer{cache: cache, pool: pool, logger: logger}, nil
}

// Close releases the worker pool.
func (n *Normalizer) Close() {
	n.pool.Release()
}

// Project reshapes r into target. The returned structure is a copy of
// target whose root list flag tells whether Data is a list of instances.
func (n *Normalizer) Project(ctx context.Context, r Result, target *resultshape.Structure) (Result, error) {
	plan, err := n.cache.Get(r.Structure, target)
	if err != nil {
		return Result{}, fmt.Errorf("project onto %q: %w", target.Label, err)
	}
	data, err := plan.TransformContext(ctx, r.Data)
	if err != nil {
		return Result{}, fmt.Errorf("project onto %q: %w", target.Label, err)
	}
	return Result{Structure: target.CopyAs(plan.ListOutput()), Data: data}, nil
}

// Union reshapes every branch into target and concatenates the instances in
// branch order. The result is always a list.
func (n *Normalizer) Union(ctx context.Context, target *resultshape.Structure, branches []Result) (Result, error) {
	parts := make([][]any, len(branches))
	errs := make([]error, len(branches))

	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		err := n.pool.Submit(func() {
			defer wg.Done()
			parts[i], errs[i] = n.instances(ctx, branch, target)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to schedule branch %d: %w", i, err)
		}
	}
	wg.Wait()

	out := make([]any, 0)
	for i, part := range parts {
		if errs[i] != nil {
			return Result{}, fmt.Errorf("union branch %d: %w", i, errs[i])
		}
		out = append(out, part...)
	}
	n.logger.With(map[string]any{
		"branches":  len(branches),
		"instances": len(out),
	}).Debugf("union normalized")
	return Result{Structure: target.CopyAs(true), Data: out}, nil
}

// instances reshapes one branch and returns its target instances.
func (n *Normalizer) instances(ctx context.Context, r Result, target *resultshape.Structure) ([]any, error) {
	plan, err := n.cache.Get(r.Structure, target)
	if err != nil {
		return nil, err
	}
	if plan.ListOutput() {
		return plan.CollectContext(ctx, r.Data)
	}
	v, err := plan.TransformContext(ctx, r.Data)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

// Evaluate computes the result of a plan: datasources are fetched, unions
// evaluate their branches and normalize them to their own shape. Other kinds
// are executed by the datasources and fail with ErrUnsupported.
func (n *Normalizer) Evaluate(ctx context.Context, node Node, fetch Fetcher) (Result, error) {
	switch node := node.(type) {
	case *Datasource:
		return fetch(ctx, node)
	case *Union:
		branches := make([]Result, len(node.Branches))
		for i, b := range node.Branches {
			r, err := n.Evaluate(ctx, b, fetch)
			if err != nil {
				return Result{}, err
			}
			branches[i] = r
		}
		return n.Union(ctx, node.Shape, branches)
	case *Join, *Filter, *Minus, *Optional:
		return Result{}, fmt.Errorf("%s: %w", TypeName(node), ErrUnsupported)
	default:
		panic(fmt.Sprintf("unknown query node %T", node))
	}
}
