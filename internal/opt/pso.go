package opt

import (
	"math"
	"math/rand"
	"sync"
)

// PSO is a global-best particle swarm over the unit hypercube. Positions
// are not clamped: a particle that overshoots the cube is rejected by the
// fitness contract (its cost is +Inf), which pulls the swarm back inside
// without any bound handling here.
//
// The random stream is consumed only by the coordinating goroutine, so a
// run is reproducible for a given seed even with parallel evaluation.
type PSO struct {
	Iters   int
	Pop     int
	Seed    int64
	Workers int // evaluation workers; <=1 evaluates serially

	Inertia   float64
	Cognitive float64
	Social    float64
	VMax      float64 // per-component velocity clamp

	// NewEval, when set, is called once per worker goroutine so every
	// worker evaluates through its own closure and therefore its own
	// parameter record. When nil, the eval passed to Run is shared and
	// must be safe for concurrent use.
	NewEval func() func([]float64) float64

	// OnIteration, when set, observes the global best after each
	// iteration. Iteration 0 reports the initial population. The best
	// slice is reused between calls; observers must copy to retain it.
	OnIteration func(iter int, best []float64, cost float64)

	// Stop, when set, is polled once per iteration; returning true ends
	// the run early with the best found so far.
	Stop func() bool
}

// NewPSO returns a PSO with the usual constriction-style coefficients.
func NewPSO(iters, pop int, seed int64) *PSO {
	return &PSO{
		Iters:     iters,
		Pop:       pop,
		Seed:      seed,
		Workers:   1,
		Inertia:   0.729,
		Cognitive: 1.49445,
		Social:    1.49445,
		VMax:      0.25,
	}
}

// Run executes the swarm and returns the best normalized point and cost.
func (p *PSO) Run(eval func([]float64) float64, dim int) ([]float64, float64) {
	pop := p.Pop
	if pop < 2 {
		pop = 2
	}
	rng := rand.New(rand.NewSource(p.Seed))

	pos := make([][]float64, pop)
	vel := make([][]float64, pop)
	cost := make([]float64, pop)
	bestPos := make([][]float64, pop)
	bestCost := make([]float64, pop)

	for i := 0; i < pop; i++ {
		pos[i] = make([]float64, dim)
		vel[i] = make([]float64, dim)
		bestPos[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			pos[i][d] = rng.Float64()
			vel[i][d] = (rng.Float64()*2 - 1) * p.VMax
		}
	}

	globalPos := make([]float64, dim)
	globalCost := math.Inf(1)

	update := func() {
		for i := 0; i < pop; i++ {
			if cost[i] < bestCost[i] {
				bestCost[i] = cost[i]
				copy(bestPos[i], pos[i])
			}
			if cost[i] < globalCost {
				globalCost = cost[i]
				copy(globalPos, pos[i])
			}
		}
	}

	p.evalAll(eval, pos, cost)
	for i := range bestCost {
		bestCost[i] = math.Inf(1)
	}
	update()
	if p.OnIteration != nil {
		p.OnIteration(0, globalPos, globalCost)
	}

	for iter := 1; iter <= p.Iters; iter++ {
		if p.Stop != nil && p.Stop() {
			break
		}
		for i := 0; i < pop; i++ {
			for d := 0; d < dim; d++ {
				r1 := rng.Float64()
				r2 := rng.Float64()
				v := p.Inertia*vel[i][d] +
					p.Cognitive*r1*(bestPos[i][d]-pos[i][d]) +
					p.Social*r2*(globalPos[d]-pos[i][d])
				if v > p.VMax {
					v = p.VMax
				} else if v < -p.VMax {
					v = -p.VMax
				}
				vel[i][d] = v
				pos[i][d] += v
			}
		}
		p.evalAll(eval, pos, cost)
		update()
		if p.OnIteration != nil {
			p.OnIteration(iter, globalPos, globalCost)
		}
	}

	out := make([]float64, dim)
	copy(out, globalPos)
	return out, globalCost
}

// evalAll fills cost[i] = eval(pos[i]), fanning out across workers when
// configured. Evaluation order does not affect the result.
func (p *PSO) evalAll(eval func([]float64) float64, pos [][]float64, cost []float64) {
	if p.Workers <= 1 {
		for i := range pos {
			cost[i] = eval(pos[i])
		}
		return
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.Workers; w++ {
		ev := eval
		if p.NewEval != nil {
			ev = p.NewEval()
		}
		wg.Add(1)
		go func(ev func([]float64) float64) {
			defer wg.Done()
			for i := range idx {
				cost[i] = ev(pos[i])
			}
		}(ev)
	}
	for i := range pos {
		idx <- i
	}
	close(idx)
	wg.Wait()
}
