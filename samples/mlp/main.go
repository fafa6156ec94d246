package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/cyclemodel"
	"github.com/sarchlab/podsim/verify"
	"github.com/sarchlab/podsim/workload"
)

type roundPrinter struct{}

func (roundPrinter) Func(ctx sim.HookCtx) {
	if ctx.Pos != cyclemodel.HookPosRoundComplete {
		return
	}

	r := ctx.Item.(cyclemodel.RoundRecord)
	fmt.Printf("round %3d: cycles %5d-%5d stall %4d\n",
		r.Round, r.StartCycle, r.EndCycle, r.StallCycles)
}

func mustLayer(l *workload.Layer, err error) *workload.Layer {
	if err != nil {
		panic(err)
	}

	return l
}

func main() {
	const size = 32

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := config.Default()
	cfg.NumArrays = 4
	cfg.ArrayRows = size
	cfg.ArrayCols = size
	cfg.BankSize = 16 * 1024
	cfg.BandwidthGiBps = 64

	platform := config.PlatformBuilder{}.
		WithConfig(cfg).
		WithLogger(logger).
		Build("Pod")

	c := compiler.Builder{}.WithPlatform(platform).Build("Compiler")

	model := workload.NewModel("mlp", 2,
		mustLayer(workload.NewGEMMLayer("fc1", 64, 128, 128, size, size)),
		&workload.Layer{Name: "relu", Type: "Activation", Deps: []string{"fc1"}},
		mustLayer(workload.NewGEMMLayer("fc2", 64, 128, 64, size, size, "relu")),
	)

	if err := c.Compile(model); err != nil {
		panic(err)
	}

	c.DuplicateSchedule(model, model.NoRepeat)

	res, err := c.RunCycleModel(roundPrinter{})
	if err != nil {
		panic(err)
	}

	report := verify.GenerateReport(c, res)
	report.WriteReport(os.Stdout)

	atexit.Exit(0)
}
