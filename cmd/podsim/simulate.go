package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/cyclemodel"
	"github.com/sarchlab/podsim/tracing"
	"github.com/sarchlab/podsim/verify"
	"github.com/sarchlab/podsim/workload"
)

// progressHook advances a monitor progress bar every completed round.
type progressHook struct {
	bar *monitoring.ProgressBar
}

func (h progressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos == cyclemodel.HookPosRoundComplete {
		h.bar.IncrementFinished(1)
	}
}

// simulate compiles a model on a fresh platform, duplicates its schedule
// NoRepeat times and replays it.
func simulate(w io.Writer, model *workload.Model) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	p := config.PlatformBuilder{}.
		WithConfig(cfg).
		WithLogger(logger).
		Build("Pod")

	c := compiler.Builder{}.WithPlatform(p).Build("Compiler")
	if err := c.Compile(model); err != nil {
		return err
	}

	c.DuplicateSchedule(model, max(model.NoRepeat, 1))

	if opts.dump {
		compute.DumpSchedule(w, p.Arrays, p.PostProcessors)
	}

	engine := sim.NewSerialEngine()
	e := c.CycleModel(engine)

	if opts.monitor {
		m := monitoring.NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterComponent(e)

		rounds := max(c.NoMainRounds(), c.NoPostRounds())
		bar := m.CreateProgressBar(model.Name, uint64(rounds))
		e.AcceptHook(progressHook{bar: bar})

		m.StartServer()
		defer m.CompleteProgressBar(bar)
	}

	var rec *tracing.SQLiteRecorder
	if opts.traceDB != "" {
		rec = tracing.NewSQLiteRecorder(opts.traceDB + "_" + model.Name)
		rec.Init()
		e.AcceptHook(rec)
	}

	res, err := c.Replay(e)
	if err != nil {
		return err
	}

	if rec != nil {
		rec.RecordResult(res)
	}

	if opts.report != "" {
		report := verify.GenerateReport(c, res)
		if err := report.SaveReportToFile(opts.report); err != nil {
			return err
		}
	}

	if err := writeResult(w, opts.output, model.Name, res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}
