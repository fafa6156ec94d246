package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/trace"
)

type options struct {
	configPath string
	logLevel   string
	logFormat  string
	output     string
	workers    int
	monitor    bool
	traceDB    string
	report     string
	dump       bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "podsim",
	Short: "Compile workloads onto a pod of systolic arrays and replay them.",
	Long: `podsim places the tile multiplications of a workload on the arrays, ` +
		`post-processors and banks of a pod, round by round, and replays the ` +
		`schedule cycle by cycle to estimate its run time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnv(cmd)
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "",
		"platform config file (env PODSIM_CONFIG)")
	f.StringVar(&opts.logLevel, "log-level", "warn",
		"trace, debug, info, warn or error (env PODSIM_LOG_LEVEL)")
	f.StringVar(&opts.logFormat, "log-format", "text", "text or json")
	f.StringVarP(&opts.output, "output", "o", "table", "table, json or yaml")
	f.IntVar(&opts.workers, "workers", 0,
		"placement search workers, overrides the config when positive")
	f.BoolVar(&opts.monitor, "monitor", false,
		"serve the akita monitor while replaying")
	f.StringVar(&opts.traceDB, "trace-db", "",
		"record every round into this SQLite database (without suffix)")
	f.StringVar(&opts.report, "report", "",
		"write a verification report to this file")
	f.BoolVar(&opts.dump, "dump-schedule", false,
		"print the per-round schedule before replaying")

	rootCmd.AddCommand(runCmd, gemmCmd)
}

// loadEnv reads .env and fills the flags that were not given explicitly.
func loadEnv(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	f := cmd.Flags()

	if v, ok := os.LookupEnv("PODSIM_CONFIG"); ok && !f.Changed("config") {
		opts.configPath = v
	}

	if v, ok := os.LookupEnv("PODSIM_LOG_LEVEL"); ok && !f.Changed("log-level") {
		opts.logLevel = v
	}

	return nil
}

func newLogger() (*slog.Logger, error) {
	level, err := trace.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}

	return trace.NewLogger(os.Stderr, opts.logFormat, level), nil
}

func loadConfig() (config.Config, error) {
	c := config.Default()

	if opts.configPath != "" {
		var err error
		if c, err = config.Load(opts.configPath); err != nil {
			return c, err
		}
	}

	if opts.workers > 0 {
		c.SearchWorkers = opts.workers
	}

	c = c.WithDerivedDefaults()

	return c, c.Validate()
}
