package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/podsim/workload"
)

var (
	modelName string
	repeat    int
)

var runCmd = &cobra.Command{
	Use:   "run <workload>",
	Short: "Compile and replay the models of a precompiled workload file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		w, err := workload.Load(args[0])
		if err != nil {
			return err
		}

		models := w.Models
		if modelName != "" {
			models = nil
			for _, m := range w.Models {
				if m.Name == modelName {
					models = append(models, m)
				}
			}

			if len(models) == 0 {
				return fmt.Errorf("workload %s has no model %s", args[0], modelName)
			}
		}

		for _, m := range models {
			if repeat > 0 {
				m.NoRepeat = repeat
			}

			if err := simulate(os.Stdout, m); err != nil {
				return err
			}
		}

		return nil
	},
}

var gemmCmd = &cobra.Command{
	Use:   "gemm <m> <k> <n>",
	Short: "Compile and replay one M by K by N matrix multiplication.",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		dims := make([]int, 3)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid dimension %q", a)
			}

			dims[i] = v
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		layer, err := workload.NewGEMMLayer("gemm", dims[0], dims[1], dims[2],
			cfg.ArrayRows, cfg.ArrayCols)
		if err != nil {
			return err
		}

		return simulate(os.Stdout, workload.NewModel("gemm", max(repeat, 1), layer))
	},
}

func init() {
	runCmd.Flags().StringVarP(&modelName, "model", "m", "",
		"only run this model of the workload")

	for _, c := range []*cobra.Command{runCmd, gemmCmd} {
		c.Flags().IntVarP(&repeat, "repeat", "r", 0,
			"number of schedule copies, overrides the workload when positive")
	}
}
