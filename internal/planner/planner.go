// Package planner implements Planner (spec.md §4.11): Plan and Solve via
// Semantic Gradient Descent over the hypervector space.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"spock/internal/config"
	"spock/internal/logging"
	"spock/internal/session"
	"spock/internal/vectorspace"
)

// ErrPlanFailure is raised when Plan exhausts maxSteps or plateaus under
// the "fail" strategy.
var ErrPlanFailure = errors.New("planner: plan failure")

// Constraint is Solve's per-target input: a direction vector, a minimum
// cosine similarity to satisfy, and a name for diagnostics/violations.
type Constraint struct {
	Name          string
	Vector        vectorspace.Vector
	MinSimilarity float64
}

// Planner runs gradient descent over a fixed vector Space, tuned by cfg.
type Planner struct {
	space *vectorspace.Space
	cfg   *config.Config
}

// New builds a Planner bound to space and cfg's planning parameters
// (planningEpsilon, maxPlanningSteps, plateauStrategy, candidateLimit).
func New(space *vectorspace.Space, cfg *config.Config) *Planner {
	return &Planner{space: space, cfg: cfg}
}

// candidate is one scored next-state option during Plan.
type candidate struct {
	name  string
	next  vectorspace.Vector
	score float64 // 1 - cosine(next, goal); lower is better
}

// Plan searches for a sequence of additive moves from current towards
// goal, restricting each step's candidate pool to the candidateLimit
// named vectors nearest the current state (SPEC_FULL.md §6.2), scoring
// each candidate in parallel via errgroup.
func (p *Planner) Plan(ctx context.Context, sess *session.Session, current, goal vectorspace.Vector) (*session.PlanResult, error) {
	state := vectorspace.Clone(current)
	var steps []string
	var trace []string

	dist, err := cosineDistance(state, goal)
	if err != nil {
		return nil, err
	}

	plateauCount := 0
	prevDist := dist
	for step := 0; step < p.cfg.MaxPlanningSteps; step++ {
		if dist < p.cfg.PlanningEpsilon {
			logging.PlannerDebug("plan converged after %d steps, distance=%.6f", step, dist)
			return &session.PlanResult{Steps: steps, Trace: trace, FinalDistance: dist, Success: true, TotalSteps: step}, nil
		}

		best, bestScore, err := p.bestCandidate(ctx, sess, state, goal)
		if err != nil {
			return nil, err
		}
		improvement := dist - bestScore
		if best == nil || improvement <= 0 {
			switch p.cfg.PlateauStrategy {
			case config.PlateauFail:
				logging.PlannerWarn("plan plateaued at step %d (distance=%.6f), strategy=fail", step, dist)
				return &session.PlanResult{Steps: steps, Trace: trace, FinalDistance: dist, Success: false, TotalSteps: step},
					fmt.Errorf("%w: plateau at step %d", ErrPlanFailure, step)
			case config.PlateauRandomRestart:
				state = vectorspace.Normalise(addScaled(state, p.space.CreateRandom(), 0.1))
				trace = append(trace, "# plateau: random_restart")
			case config.PlateauProceduralFallback:
				// No external solver is registered in this build; degrade
				// to a random restart rather than stall silently.
				state = vectorspace.Normalise(addScaled(state, p.space.CreateRandom(), 0.1))
				trace = append(trace, "# plateau: procedural_fallback (no external solver registered, used random_restart)")
			default:
				return nil, fmt.Errorf("planner: unknown plateau strategy %q", p.cfg.PlateauStrategy)
			}
			newDist, err := cosineDistance(state, goal)
			if err != nil {
				return nil, err
			}
			dist = newDist
		} else {
			state = best.next
			steps = append(steps, best.name)
			trace = append(trace, fmt.Sprintf("# step %d: move towards %s (score=%.6f)", step, best.name, bestScore))
			dist = bestScore
		}

		if deltaBelowPlateauThreshold(prevDist, dist, p.cfg.PlanningEpsilon) {
			plateauCount++
		} else {
			plateauCount = 0
		}
		prevDist = dist
		if plateauCount >= 3 {
			if p.cfg.PlateauStrategy == config.PlateauFail {
				logging.PlannerWarn("plan plateaued (3 consecutive small deltas) at step %d", step)
				return &session.PlanResult{Steps: steps, Trace: trace, FinalDistance: dist, Success: false, TotalSteps: step + 1},
					fmt.Errorf("%w: plateau after %d steps", ErrPlanFailure, step+1)
			}
			plateauCount = 0
		}
	}

	logging.PlannerWarn("plan exhausted maxSteps=%d, distance=%.6f", p.cfg.MaxPlanningSteps, dist)
	return &session.PlanResult{Steps: steps, Trace: trace, FinalDistance: dist, Success: false, TotalSteps: p.cfg.MaxPlanningSteps},
		fmt.Errorf("%w: exhausted %d steps", ErrPlanFailure, p.cfg.MaxPlanningSteps)
}

// bestCandidate scores every candidate named vector visible to sess
// (restricted to the candidateLimit nearest the current state) in
// parallel, returning the lowest-score (best) option.
func (p *Planner) bestCandidate(ctx context.Context, sess *session.Session, state, goal vectorspace.Vector) (*candidate, float64, error) {
	names, err := sess.NearestSymbols(ctx, state, p.cfg.CandidateLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("planner: candidate lookup: %w", err)
	}

	var mu sync.Mutex
	var best *candidate
	bestScore := 1.0

	g, gctx := errgroup.WithContext(ctx)
	for _, nv := range names {
		nv := nv
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			tv, ok := sess.Resolve(nv.Name)
			if !ok || tv.Kind != session.KindVector {
				return nil
			}
			next, err := vectorspace.Add(state, tv.Vector)
			if err != nil {
				return nil // dimension mismatch: skip this candidate rather than fail the whole search
			}
			next = vectorspace.Normalise(next)
			score, err := cosineDistance(next, goal)
			if err != nil {
				return nil
			}
			mu.Lock()
			if best == nil || score < bestScore {
				best = &candidate{name: nv.Name, next: next, score: score}
				bestScore = score
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("planner: candidate scoring: %w", err)
	}
	return best, bestScore, nil
}

// Solve iterates state towards every constraint it violates, moving by
// half the violation along the constraint's direction each pass, until
// no constraint's violation exceeds epsilon or maxSteps is reached.
func (p *Planner) Solve(ctx context.Context, state vectorspace.Vector, constraints []Constraint) (*session.SolutionResult, error) {
	current := vectorspace.Clone(state)

	for step := 0; step < p.cfg.MaxPlanningSteps; step++ {
		var violations []string
		worstViolation := 0.0

		for _, c := range constraints {
			sim, err := vectorspace.CosineSimilarity(current, c.Vector)
			if err != nil {
				return nil, fmt.Errorf("planner: solve constraint %q: %w", c.Name, err)
			}
			violation := c.MinSimilarity - sim
			if violation > p.cfg.PlanningEpsilon {
				violations = append(violations, c.Name)
				if violation > worstViolation {
					worstViolation = violation
				}
				moved, err := vectorspace.Add(current, vectorspace.Scale(c.Vector, 0.5*violation))
				if err != nil {
					return nil, fmt.Errorf("planner: solve move towards %q: %w", c.Name, err)
				}
				current = vectorspace.Normalise(moved)
			}
		}

		if len(violations) == 0 {
			logging.PlannerDebug("solve converged after %d steps", step)
			return &session.SolutionResult{Value: current, Violations: nil, Success: true, TotalSteps: step}, nil
		}
	}

	logging.PlannerWarn("solve exhausted maxSteps=%d", p.cfg.MaxPlanningSteps)
	finalViolations := violatedNames(current, constraints, p.cfg.PlanningEpsilon)
	return &session.SolutionResult{Value: current, Violations: finalViolations, Success: false, TotalSteps: p.cfg.MaxPlanningSteps},
		fmt.Errorf("%w: exhausted %d steps with %d violations", ErrPlanFailure, p.cfg.MaxPlanningSteps, len(finalViolations))
}

func violatedNames(state vectorspace.Vector, constraints []Constraint, epsilon float64) []string {
	var out []string
	for _, c := range constraints {
		sim, err := vectorspace.CosineSimilarity(state, c.Vector)
		if err != nil {
			continue
		}
		if c.MinSimilarity-sim > epsilon {
			out = append(out, c.Name)
		}
	}
	return out
}

func cosineDistance(a, b vectorspace.Vector) (float64, error) {
	c, err := vectorspace.CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - c, nil
}

func addScaled(v, delta vectorspace.Vector, factor float64) vectorspace.Vector {
	scaled := vectorspace.Scale(delta, factor)
	sum, err := vectorspace.Add(v, scaled)
	if err != nil {
		return v
	}
	return sum
}

func deltaBelowPlateauThreshold(prev, current, epsilon float64) bool {
	delta := prev - current
	if delta < 0 {
		delta = -delta
	}
	return delta < epsilon/10
}
