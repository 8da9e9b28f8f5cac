// Package batch runs one operation over many inputs without letting a single
// bad input stop the run.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/davecgh/go-spew/spew"

	"github.com/jpfielding/fairdata.go/pkg/logging"
	"github.com/jpfielding/fairdata.go/pkg/util"
)

// Result is the outcome for one input
type Result[T any] struct {
	Item  string
	ID    string
	Value T
	Err   error
}

// OK reports whether the item succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Report collects the results of one run in input order
type Report[T any] struct {
	RunID   string
	Results []Result[T]
}

// Succeeded returns the successful results
func (r Report[T]) Succeeded() []Result[T] {
	var out []Result[T]
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the failed results
func (r Report[T]) Failed() []Result[T] {
	var out []Result[T]
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Summary is a one line account of the run
func (r Report[T]) Summary() string {
	return fmt.Sprintf("run %s: %d ok, %d failed", r.RunID, len(r.Succeeded()), len(r.Failed()))
}

// Run applies fn to every item in order. Errors and panics are recorded per
// item. Once ctx is done the remaining items are recorded with ctx.Err().
func Run[T any](ctx context.Context, items []string, fn func(ctx context.Context, item string) (T, error)) Report[T] {
	report := Report[T]{RunID: util.RunID(), Results: make([]Result[T], 0, len(items))}
	ctx = logging.AppendCtx(ctx, slog.String("run", report.RunID))
	for _, item := range items {
		res := Result[T]{Item: item, ID: util.HashUUID(item)}
		if err := ctx.Err(); err != nil {
			res.Err = err
			report.Results = append(report.Results, res)
			continue
		}
		ictx := logging.AppendCtx(ctx, slog.String("item", item))
		res.Value, res.Err = call(ictx, item, fn)
		if res.Err != nil {
			slog.WarnContext(ictx, "batch item failed", "error", res.Err)
			if slog.Default().Enabled(ictx, slog.LevelDebug) {
				slog.DebugContext(ictx, "batch item dump", "result", spew.Sdump(res))
			}
		}
		report.Results = append(report.Results, res)
	}
	slog.InfoContext(ctx, "batch complete", "ok", len(report.Succeeded()), "failed", len(report.Failed()))
	return report
}

func call[T any](ctx context.Context, item string, fn func(context.Context, string) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.DebugContext(ctx, "recovered panic", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic processing %s: %v", item, r)
		}
	}()
	return fn(ctx, item)
}
