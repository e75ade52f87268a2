// Package parallel implements the `parallel` fan-out handler and its
// matching `parallel.fan_in` counterpart (spec §4.7): a bounded-concurrency
// set of branch traversals, each an independent mini-pipeline walk over a
// deep-cloned context copy, drained according to a join policy and an
// error policy.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/stencila/attractor/internal/engine"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/handler"
	"github.com/stencila/attractor/internal/outcome"
)

// branchResult is one fan-out branch's completed traversal.
type branchResult struct {
	target  string
	outcome outcome.Outcome
}

// FanOutHandler is bound to the `parallel` node type. It fans an edge set
// into a bounded-concurrency set of branch traversals and aggregates their
// outcomes per spec §4.7's join/error policy rules.
type FanOutHandler struct {
	Registry *handler.Registry
	Sink     engine.EventEmitter
}

func (h *FanOutHandler) Execute(ctx context.Context, env *handler.Env, node *graph.Node) (outcome.Outcome, error) {
	edges := env.Graph.OutgoingEdges(node.ID)
	if len(edges) == 0 {
		return outcome.Succeed("parallel: no branches"), nil
	}

	joinPolicy := node.AttrString("join_policy", "wait_all")
	errorPolicy := node.AttrString("error_policy", "continue")
	maxParallel := node.AttrInt("max_parallel", 4)
	if maxParallel < 1 {
		maxParallel = 1
	}

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(maxParallel))
	results := make([]branchResult, len(edges))
	ran := make([]bool, len(edges))
	var mu sync.Mutex
	var successSeen atomic.Bool

	var g errgroup.Group
	for i, e := range edges {
		i, e := i, e
		g.Go(func() error {
			if err := sem.Acquire(bctx, 1); err != nil {
				return nil // cancelled before this branch started: dropped
			}
			defer sem.Release(1)
			if bctx.Err() != nil {
				return nil
			}

			branchCtx, err := env.Context.DeepClone()
			if err != nil {
				return err
			}
			benv := &handler.Env{Graph: env.Graph, Context: branchCtx, LogsRoot: env.LogsRoot}
			out, _ := engine.RunFrom(bctx, h.Registry, benv, e.To, h.Sink)

			mu.Lock()
			results[i] = branchResult{target: e.To, outcome: out}
			ran[i] = true
			mu.Unlock()

			if joinPolicy == "first_success" && out.Status == outcome.Success {
				if !successSeen.Swap(true) {
					cancel()
				}
			}
			if errorPolicy == "fail_fast" && out.Status == outcome.Fail {
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcome.FailWith(err.Error()), err
	}

	return aggregate(joinPolicy, errorPolicy, results, ran), nil
}

func aggregate(joinPolicy, errorPolicy string, results []branchResult, ran []bool) outcome.Outcome {
	successCount, failCount := 0, 0
	var displayed []map[string]any
	for i, r := range results {
		if !ran[i] {
			continue
		}
		switch r.outcome.Status {
		case outcome.Success, outcome.PartialSuccess:
			successCount++
		case outcome.Fail:
			failCount++
		}
		if r.outcome.Status == outcome.Fail && errorPolicy == "ignore" {
			continue
		}
		displayed = append(displayed, map[string]any{
			"target":  r.target,
			"outcome": string(r.outcome.Status),
			"notes":   r.outcome.Notes,
		})
	}

	var out outcome.Outcome
	switch joinPolicy {
	case "first_success":
		if successCount > 0 {
			out = outcome.Succeed(fmt.Sprintf("%d succeeded", successCount))
		} else {
			out = outcome.FailWith("no branch succeeded")
		}
	default: // wait_all
		switch {
		case failCount > 0 && errorPolicy == "ignore":
			out = outcome.Succeed(fmt.Sprintf("%d succeeded, %d ignored failures", successCount, failCount))
		case failCount > 0:
			out = outcome.PartialSucceed(fmt.Sprintf("%d succeeded, %d failed", successCount, failCount))
		default:
			out = outcome.Succeed(fmt.Sprintf("%d succeeded", successCount))
		}
	}

	out = out.WithContextUpdate("parallel.results", displayed)
	out = out.WithContextUpdate("parallel.success_count", successCount)
	out = out.WithContextUpdate("parallel.fail_count", failCount)
	return out
}
