package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/podsim/cyclemodel"
)

type modelResult struct {
	Model             string `json:"model" yaml:"model"`
	cyclemodel.Result `yaml:",inline"`
}

func writeResult(w io.Writer, format, model string, res *cyclemodel.Result) error {
	out := modelResult{Model: model, Result: *res}

	switch format {
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case "yaml":
		data, err := yaml.Marshal(out)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	case "table":
		writeTable(w, model, res)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeTable(w io.Writer, model string, res *cyclemodel.Result) {
	t := table.NewWriter()
	t.SetTitle(model)
	t.AppendHeader(table.Row{"Statistic", "Value"})

	t.AppendRows([]table.Row{
		{"Cycles", res.NoCycles},
		{"Array cycles", res.ArrayCycles},
		{"Post cycles", res.PostCycles},
		{"Warm-up cycles", res.WarmUpCycles},
		{"Main rounds", res.NoMainRounds},
		{"Post rounds", res.NoPostRounds},
		{"Layers", res.NoLayers},
		{"GEMM ops", res.TotalGEMMOps},
		{"Ops", res.NoOps},
		{"Post ops", res.NoPostOps},
		{"X bytes", res.XBytes},
		{"W bytes", res.WBytes},
		{"P bytes", res.PBytes},
		{"Dram bytes", res.TotalBytes},
		{"SRAM read bytes", res.SRAMReadBytes},
		{"SRAM write bytes", res.SRAMWriteBytes},
		{"Memory stall cycles", res.MemoryStallCycles},
		{"Array utilization", fmt.Sprintf("%.3f", res.ArrayUtilization)},
	})

	if res.Failed() {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Failure", res.Failure})
		t.AppendRow(table.Row{"Failed round", res.FailedRound})
	}

	if res.Livelock {
		t.AppendRow(table.Row{"Livelock", true})
	}

	fmt.Fprintln(w, t.Render())
}
