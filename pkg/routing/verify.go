package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/chrouter/pkg/graph"
)

// Mismatch is a pair where the contracted query disagrees with Dijkstra.
// An unreachable side is reported as +Inf.
type Mismatch struct {
	Source, Target int32
	Want, Got      float64
}

// VerifyReport summarizes a Verify run.
type VerifyReport struct {
	Pairs        int
	NoPath       int
	Mismatches   []Mismatch
	CHVisited    int
	PlainVisited int
	Elapsed      time.Duration
}

// RandomPairs draws count source/target pairs from n nodes.
func RandomPairs(n, count int, seed uint64) [][2]int32 {
	if n == 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pairs := make([][2]int32, count)
	for i := range pairs {
		pairs[i] = [2]int32{int32(rng.IntN(n)), int32(rng.IntN(n))}
	}
	return pairs
}

// Verify runs every pair through both the contracted query and a plain
// Dijkstra on the road edges of g, spread over workers goroutines. Weights
// are compared with a relative tolerance of 1e-6.
func Verify(ctx context.Context, g *graph.LeveledGraph, pairs [][2]int32, workers int, log *zap.Logger) (*VerifyReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	workers = max(1, min(workers, len(pairs)))
	start := time.Now()
	q := NewQuery(g)

	reports := make([]VerifyReport, workers)
	eg, ctx := errgroup.WithContext(ctx)
	chunk := (len(pairs) + workers - 1) / workers
	for w := range workers {
		lo, hi := w*chunk, min((w+1)*chunk, len(pairs))
		eg.Go(func() error {
			dij := NewDijkstra(g)
			r := &reports[w]
			for _, pair := range pairs[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				want, plainVisited, err := plainWeight(dij, pair[0], pair[1])
				if err != nil {
					return err
				}
				got, chVisited, err := chWeight(ctx, q, pair[0], pair[1])
				if err != nil {
					return err
				}
				r.Pairs++
				r.CHVisited += chVisited
				r.PlainVisited += plainVisited
				if math.IsInf(want, 1) && math.IsInf(got, 1) {
					r.NoPath++
					continue
				}
				if math.IsInf(want, 1) != math.IsInf(got, 1) || math.Abs(want-got) > 1e-6*max(1, want) {
					r.Mismatches = append(r.Mismatches, Mismatch{pair[0], pair[1], want, got})
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	report := &VerifyReport{Elapsed: time.Since(start)}
	for _, r := range reports {
		report.Pairs += r.Pairs
		report.NoPath += r.NoPath
		report.CHVisited += r.CHVisited
		report.PlainVisited += r.PlainVisited
		report.Mismatches = append(report.Mismatches, r.Mismatches...)
	}
	log.Info("verification complete",
		zap.Int("pairs", report.Pairs),
		zap.Int("no_path", report.NoPath),
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Int("ch_visited", report.CHVisited),
		zap.Int("plain_visited", report.PlainVisited),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func plainWeight(d *Dijkstra, s, t int32) (float64, int, error) {
	p, err := d.CalcPath(s, t)
	if errors.Is(err, ErrNoPathFound) {
		return math.Inf(1), 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return p.Weight, p.Visited, nil
}

func chWeight(ctx context.Context, q *Query, s, t int32) (float64, int, error) {
	p, err := q.CalcPathContext(ctx, s, t, 0)
	if errors.Is(err, ErrNoPathFound) {
		return math.Inf(1), 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return p.Weight, p.Visited, nil
}
