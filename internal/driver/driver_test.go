package driver_test

import (
	"context"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nemsim/internal/comm"
	"github.com/san-kum/nemsim/internal/driver"
	"github.com/san-kum/nemsim/internal/energy"
	"github.com/san-kum/nemsim/internal/lattice"
	"github.com/san-kum/nemsim/internal/reduce"
)

type rankRun struct {
	field    *lattice.Field
	summary  *driver.Summary
	snapshot [][]float64
	err      error
}

func randomGlobal(l int, seed int64) [][]float64 {
	rng := lattice.NewRNG(seed, 99)
	g := make([][]float64, l)
	for i := range g {
		g[i] = make([]float64, l)
		for j := range g[i] {
			g[i][j] = rng.Float64() * 2 * math.Pi
		}
	}
	return g
}

func runWorld(ctx context.Context, global [][]float64, size int, p driver.Params, seed int64, snapshot bool) []rankRun {
	bands, err := lattice.Partition(len(global), size)
	Expect(err).NotTo(HaveOccurred())
	mesh, err := comm.NewMesh(size, comm.WithTimeout(5*time.Second))
	Expect(err).NotTo(HaveOccurred())
	defer mesh.Close()

	runs := make([]rankRun, size)
	var wg sync.WaitGroup
	for r := range bands {
		f, err := lattice.FromGlobal(global, bands[r])
		Expect(err).NotTo(HaveOccurred())
		d, err := driver.New(f, mesh.Endpoint(r), energy.NewReference(), lattice.NewRNG(seed, r), p)
		Expect(err).NotTo(HaveOccurred())

		runs[r].field = f
		wg.Add(1)
		go func(rank int) {
			defer GinkgoRecover()
			defer wg.Done()
			runs[rank].summary, runs[rank].err = d.Run(ctx)
			if snapshot && runs[rank].err == nil {
				runs[rank].snapshot, runs[rank].err = d.Snapshot(ctx)
			}
		}(r)
	}
	wg.Wait()
	return runs
}

func params(sweeps, every int, temp float64) driver.Params {
	p := driver.DefaultParams()
	p.Sweeps = sweeps
	p.ReportEvery = every
	p.Schedule = driver.Constant(temp)
	return p
}

func expectClean(runs []rankRun) {
	for r, run := range runs {
		Expect(run.err).NotTo(HaveOccurred(), "rank %d", r)
	}
}

var _ = Describe("Driver", func() {
	ctx := context.Background()

	Context("with zero sweeps", func() {
		It("reports the initial state with an undefined acceptance ratio", func() {
			global := randomGlobal(6, 1)
			runs := runWorld(ctx, global, 2, params(0, 1, 1.0), 7, false)
			expectClean(runs)

			coord := runs[0].summary
			Expect(coord.Reports).To(HaveLen(1))
			Expect(coord.Final.Sweep).To(Equal(0))
			Expect(coord.Final.AcceptanceRatio).To(Equal(reduce.RatioUndefined))
			Expect(coord.Final.Proposed).To(BeZero())

			whole, err := lattice.FromGlobal(global, lattice.Band{Start: 0, End: 6})
			Expect(err).NotTo(HaveOccurred())
			want := reduce.Finalize(reduce.Measure(whole, energy.NewReference()), 6)
			Expect(coord.Final.MeanEnergy).To(BeNumerically("~", want.MeanEnergy, 1e-12))
			Expect(coord.Final.Order).To(BeNumerically("~", want.Order, 1e-12))

			Expect(runs[1].summary.Reports).To(BeEmpty())
			Expect(runs[1].summary.Final).To(BeNil())
		})

		It("measures the same initial state for every process count", func() {
			global := randomGlobal(5, 2)
			var energies []float64
			for p := 1; p <= 5; p++ {
				runs := runWorld(ctx, global, p, params(0, 1, 1.0), 3, false)
				expectClean(runs)
				energies = append(energies, runs[0].summary.Final.MeanEnergy)
			}
			for _, e := range energies[1:] {
				Expect(e).To(BeNumerically("~", energies[0], 1e-12))
			}
		})
	})

	Context("with a report interval", func() {
		It("reduces every K sweeps and after the last one", func() {
			runs := runWorld(ctx, randomGlobal(6, 3), 3, params(7, 3, 0.8), 5, false)
			expectClean(runs)

			reports := runs[0].summary.Reports
			Expect(reports).To(HaveLen(3))
			Expect([]int{reports[0].Sweep, reports[1].Sweep, reports[2].Sweep}).To(Equal([]int{3, 6, 7}))
			Expect(reports[0].Proposed).To(Equal(int64(3 * 36)))
			Expect(reports[2].Proposed).To(Equal(int64(36)))

			for _, r := range reports {
				Expect(r.AcceptanceRatio).To(BeNumerically(">=", 0))
				Expect(r.AcceptanceRatio).To(BeNumerically("<=", 1))
				Expect(r.Order).To(BeNumerically(">=", 0))
				Expect(r.Order).To(BeNumerically("<=", 1+1e-12))
			}
			for _, run := range runs {
				Expect(run.summary.Sweeps).To(Equal(7))
			}
		})
	})

	It("is reproducible for a fixed seed and process count", func() {
		global := randomGlobal(8, 4)
		a := runWorld(ctx, global, 3, params(5, 1, 0.6), 42, false)
		b := runWorld(ctx, global, 3, params(5, 1, 0.6), 42, false)
		expectClean(a)
		expectClean(b)

		Expect(a[0].summary.Reports).To(Equal(b[0].summary.Reports))
		for r := range a {
			Expect(a[r].field.Owned()).To(Equal(b[r].field.Owned()))
		}
	})

	It("gathers the full lattice at the coordinator on request", func() {
		runs := runWorld(ctx, randomGlobal(7, 5), 3, params(2, 1, 1.0), 1, true)
		expectClean(runs)

		snap := runs[0].snapshot
		Expect(snap).To(HaveLen(7))

		var want [][]float64
		for _, run := range runs {
			want = append(want, run.field.Owned()...)
		}
		Expect(snap).To(Equal(want))
		Expect(runs[1].snapshot).To(BeNil())
	})

	It("follows a linear temperature schedule", func() {
		p := params(5, 1, 1.0)
		p.Schedule = driver.Linear{From: 2.0, To: 0.5}
		runs := runWorld(ctx, randomGlobal(4, 6), 2, p, 1, false)
		expectClean(runs)

		reports := runs[0].summary.Reports
		Expect(reports[0].Temperature).To(Equal(2.0))
		Expect(reports[4].Temperature).To(Equal(0.5))
	})

	It("notifies observers on the coordinator only", func() {
		mesh, _ := comm.NewMesh(2)
		defer mesh.Close()
		global := randomGlobal(4, 7)
		bands, _ := lattice.Partition(4, 2)

		counts := make([]int, 2)
		var wg sync.WaitGroup
		for r := 0; r < 2; r++ {
			f, _ := lattice.FromGlobal(global, bands[r])
			rank := r
			obs := driver.ObserverFunc(func(reduce.Result) { counts[rank]++ })
			d, err := driver.New(f, mesh.Endpoint(r), energy.NewFast(), lattice.NewRNG(1, r), params(4, 2, 1.0), driver.WithObserver(obs))
			Expect(err).NotTo(HaveOccurred())
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := d.Run(ctx)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(counts).To(Equal([]int{2, 0}))
	})

	It("stops before the next sweep when cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		runs := runWorld(cctx, randomGlobal(4, 8), 2, params(10, 1, 1.0), 1, false)
		for _, run := range runs {
			Expect(run.err).To(MatchError(driver.ErrStopped))
			Expect(run.summary.Sweeps).To(BeZero())
		}
	})

	It("aborts with the failing sweep on a communication failure", func() {
		mesh, _ := comm.NewMesh(2, comm.WithTimeout(50*time.Millisecond))
		defer mesh.Close()
		bands, _ := lattice.Partition(4, 2)
		f, _ := lattice.FromGlobal(randomGlobal(4, 9), bands[0])

		d, err := driver.New(f, mesh.Endpoint(0), energy.NewReference(), lattice.NewRNG(1, 0), params(3, 1, 1.0))
		Expect(err).NotTo(HaveOccurred())

		summary, err := d.Run(ctx)
		Expect(err).To(MatchError(comm.ErrCommunication))
		var se *driver.SweepError
		Expect(err).To(BeAssignableToTypeOf(se))
		se = err.(*driver.SweepError)
		Expect(se.Sweep).To(Equal(1))
		Expect(se.Phase).To(Equal("halo"))
		Expect(summary.Sweeps).To(BeZero())
	})

	DescribeTable("rejects invalid parameters",
		func(mutate func(*driver.Params)) {
			mesh, _ := comm.NewMesh(1)
			defer mesh.Close()
			f, _ := lattice.NewField(lattice.Band{Start: 0, End: 2}, 2)

			p := params(1, 1, 1.0)
			mutate(&p)
			_, err := driver.New(f, mesh.Endpoint(0), energy.NewReference(), lattice.NewRNG(0, 0), p)
			Expect(err).To(MatchError(driver.ErrParams))
		},
		Entry("negative sweeps", func(p *driver.Params) { p.Sweeps = -1 }),
		Entry("zero interval", func(p *driver.Params) { p.ReportEvery = 0 }),
		Entry("zero temperature", func(p *driver.Params) { p.Schedule = driver.Constant(0) }),
		Entry("negative anneal target", func(p *driver.Params) { p.Schedule = driver.Linear{From: 1, To: -1} }),
		Entry("missing schedule", func(p *driver.Params) { p.Schedule = nil }),
		Entry("zero step", func(p *driver.Params) { p.MaxStep = 0 }),
		Entry("root outside world", func(p *driver.Params) { p.Root = 1 }),
	)
})
