package engine

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BakeAll runs independent bakes with at most parallelism of them at once;
// zero or less means one per CPU. Every request is resolved and planned
// first, and if two destinations coincide or nest, nothing is written and
// an *OverlappingDestinationError is returned.
//
// Results are returned in request order. A failing bake does not stop the
// others; their errors are collected in a *MultiError.
func (e *Engine) BakeAll(ctx context.Context, reqs []Request, parallelism int) ([]*Result, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	prepared := make([]*bake, len(reqs))
	prepErrs := make([]error, len(reqs))
	for i, req := range reqs {
		prepared[i], prepErrs[i] = e.prepare(req)
	}

	if err := checkOverlap(prepared, prepErrs); err != nil {
		return nil, err
	}

	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i := range prepared {
		if prepErrs[i] != nil {
			results[i], errs[i] = e.finish(prepared[i], nil, prepErrs[i])
			continue
		}
		g.Go(func() error {
			results[i], errs[i] = e.execute(ctx, prepared[i])
			return nil
		})
	}
	_ = g.Wait()

	var multi MultiError
	for i, err := range errs {
		if err != nil {
			where := results[i].Destination
			if where == "" {
				where = results[i].Template
			}
			multi.Add(where, "bake failed", err)
		}
	}
	if multi.HasErrors() {
		return results, &multi
	}
	return results, nil
}

func checkOverlap(prepared []*bake, prepErrs []error) error {
	var dests []string
	for i, b := range prepared {
		if prepErrs[i] == nil {
			dests = append(dests, b.result.Destination)
		}
	}
	sort.Strings(dests)

	for i := 0; i < len(dests); i++ {
		for j := i + 1; j < len(dests); j++ {
			if overlaps(dests[i], dests[j]) {
				return &OverlappingDestinationError{First: dests[i], Second: dests[j]}
			}
		}
	}
	return nil
}

// overlaps reports whether a and b are the same directory or one contains
// the other.
func overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
