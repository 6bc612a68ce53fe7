package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/lattice"
	"pkg.world.dev/world-engine/lattice/component"
	"pkg.world.dev/world-engine/lattice/system"
)

type position struct {
	X, Y float64
}

func (position) Name() string { return "position" }

type velocity struct {
	DX, DY float64
}

func (velocity) Name() string { return "velocity" }

type sleeping struct{}

func (sleeping) Name() string { return "sleeping" }

type benchResult struct {
	Entities int
	Ticks    int
	Total    time.Duration
}

func (r benchResult) perTick() time.Duration {
	if r.Ticks == 0 {
		return 0
	}
	return r.Total / time.Duration(r.Ticks)
}

// runBench moves entities every tick. Every fourth entity sleeps and is skipped by the system.
func runBench(cmd *cobra.Command, entities, ticks int) (benchResult, error) {
	w, err := quietWorld(lattice.DefaultConfig(), lattice.WithComponents(
		component.NewMetadata[position](),
		component.NewMetadata[velocity](),
		component.NewMetadata[sleeping](),
	))
	if err != nil {
		return benchResult{}, err
	}
	defer func() { _ = w.Close() }()

	b := w.NewSystem("movement")
	pos := system.Get[position](b)
	vel := system.Get[velocity](b)
	system.Without[sleeping](b)
	movement, err := b.Build(func(row *system.Row) error {
		p, v := pos.Value(row), vel.Value(row)
		return lattice.Set(w, lattice.Entity(row.Entity), position{X: p.X + v.DX, Y: p.Y + v.DY})
	})
	if err != nil {
		return benchResult{}, err
	}
	if err := w.RegisterSystems(movement); err != nil {
		return benchResult{}, err
	}

	for i := 0; i < entities; i++ {
		e, err := w.Create(position{}, velocity{DX: 1, DY: float64(i % 3)})
		if err != nil {
			return benchResult{}, err
		}
		if i%4 == 0 {
			if err := lattice.Add[sleeping](w, e); err != nil {
				return benchResult{}, err
			}
		}
	}

	start := time.Now()
	for i := 0; i < ticks; i++ {
		if err := w.Tick(cmd.Context()); err != nil {
			return benchResult{}, err
		}
	}
	return benchResult{Entities: entities, Ticks: ticks, Total: time.Since(start)}, nil
}

func newBenchCommand() *cobra.Command {
	var entities, ticks int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Tick a synthetic world and report the time per tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := runBench(cmd, entities, ticks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "entities=%d ticks=%d total=%s per_tick=%s\n",
				res.Entities, res.Ticks, res.Total, res.perTick())
			return nil
		},
	}
	cmd.Flags().IntVar(&entities, "entities", 10_000, "number of entities")
	cmd.Flags().IntVar(&ticks, "ticks", 100, "number of ticks")
	return cmd
}
