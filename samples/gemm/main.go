package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/workload"
)

var (
	m      = flag.Int("m", 256, "rows of the input")
	k      = flag.Int("k", 256, "columns of the input")
	n      = flag.Int("n", 256, "columns of the weight")
	arrays = flag.Int("arrays", 4, "number of arrays")
	size   = flag.Int("size", 64, "rows and columns of one array")
	dump   = flag.Bool("dump", false, "print the schedule")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := config.Default()
	cfg.NumArrays = *arrays
	cfg.ArrayRows = *size
	cfg.ArrayCols = *size

	platform := config.PlatformBuilder{}.
		WithConfig(cfg).
		WithLogger(logger).
		Build("Pod")

	c := compiler.Builder{}.
		WithPlatform(platform).
		Build("Compiler")

	layer, err := workload.NewGEMMLayer("gemm", *m, *k, *n, *size, *size)
	if err != nil {
		panic(err)
	}

	if err := c.Compile(workload.NewModel("gemm", 1, layer)); err != nil {
		panic(err)
	}

	if *dump {
		compute.DumpSchedule(os.Stdout, platform.Arrays, platform.PostProcessors)
	}

	engine := sim.NewSerialEngine()

	res, err := c.Replay(c.CycleModel(engine))
	if err != nil {
		panic(err)
	}

	fmt.Printf("%d x %d x %d on %d arrays of %d x %d\n",
		*m, *k, *n, *arrays, *size, *size)
	fmt.Printf("rounds: %d main, %d post\n", res.NoMainRounds, res.NoPostRounds)
	fmt.Printf("cycles: %d (warm-up %d, memory stall %d)\n",
		res.NoCycles, res.WarmUpCycles, res.MemoryStallCycles)
	fmt.Printf("dram:   %.0f bytes\n", res.TotalBytes)
	fmt.Printf("util:   %.3f\n", res.ArrayUtilization)

	atexit.Exit(0)
}
