package opt

import (
	"math"
	"testing"

	"github.com/cwbudde/hyperfit/internal/fitness"
)

// normSphere has its minimum 0 at the cube center.
func normSphere(x []float64) float64 {
	var s float64
	for _, v := range x {
		d := v - 0.5
		s += d * d
	}
	return s
}

func TestPSOOnSphere(t *testing.T) {
	pso := NewPSO(200, 30, 42)

	best, cost := pso.Run(normSphere, 3)

	if len(best) != 3 {
		t.Fatalf("Expected 3 parameters, got %d", len(best))
	}
	if cost > 1e-3 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}
	for i, v := range best {
		if math.Abs(v-0.5) > 0.1 {
			t.Errorf("Parameter %d = %f, expected near 0.5", i, v)
		}
	}
}

func TestPSODeterministic(t *testing.T) {
	_, cost1 := NewPSO(80, 20, 123).Run(normSphere, 2)
	_, cost2 := NewPSO(80, 20, 123).Run(normSphere, 2)

	if cost1 != cost2 {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestPSOParallelMatchesSerial(t *testing.T) {
	serial := NewPSO(60, 20, 7)
	_, want := serial.Run(normSphere, 4)

	parallel := NewPSO(60, 20, 7)
	parallel.Workers = 4
	parallel.NewEval = func() func([]float64) float64 {
		// Each worker gets its own closure, as a fitness-backed eval
		// would hand out one record per worker.
		return normSphere
	}
	_, got := parallel.Run(normSphere, 4)

	if got != want {
		t.Errorf("Parallel run diverged: serial=%f parallel=%f", want, got)
	}
}

func TestPSOStopsEarly(t *testing.T) {
	iters := 0
	pso := NewPSO(1000, 20, 1)
	pso.OnIteration = func(iter int, _ []float64, _ float64) { iters = iter }
	pso.Stop = func() bool { return iters >= 10 }

	pso.Run(normSphere, 2)

	if iters >= 1000 {
		t.Errorf("Stop hook ignored, ran %d iterations", iters)
	}
}

func TestPSORecoversFromRejection(t *testing.T) {
	// A fitness-backed eval rejects points outside the cube; the swarm
	// must still converge using only admissible evaluations.
	p, err := fitness.NewParams([]float64{-5, -5}, []float64{10, 10})
	if err != nil {
		t.Fatal(err)
	}
	fn := fitness.NewObjective(func(real []float64, _ *fitness.Params) float64 {
		var s float64
		for _, v := range real {
			s += v * v
		}
		return s
	})

	pso := NewPSO(200, 30, 99)
	pso.VMax = 0.5 // encourage overshoot so rejection actually happens
	best, cost := pso.Run(Bind(fn, p), 2)

	if math.IsInf(cost, 1) {
		t.Fatal("No admissible point found")
	}
	if cost > 0.05 {
		t.Errorf("Expected cost near 0, got %f", cost)
	}
	for i, v := range best {
		if v < 0 || v > 1 {
			t.Errorf("Best point escaped the unit cube: best[%d]=%f", i, v)
		}
	}
}

func TestBindPanicsOnContractViolation(t *testing.T) {
	p, err := fitness.NewParams([]float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	eval := Bind(fitness.NewObjective(func([]float64, *fitness.Params) float64 { return 0 }), p)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on dimension mismatch")
		}
	}()
	eval([]float64{0.1, 0.2, 0.3})
}
