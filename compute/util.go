package compute

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/podsim/graph"
)

func opLabel(arena *graph.Arena, id graph.OpID) string {
	op := arena.Op(id)

	switch op.Kind {
	case graph.OpMultiply:
		i := op.Mult.Index
		label := fmt.Sprintf("%s(%d,%d,%d)", op.Layer, i[0], i[1], i[2])
		if op.HasPin() {
			label += "+"
		}

		return label
	default:
		flip := ""
		if op.Aggr.Flip {
			flip = "'"
		}

		return fmt.Sprintf("%s#%d%s", op.Layer, op.ID, flip)
	}
}

// DumpSchedule renders the ops of every unit, one row per round.
func DumpSchedule(w io.Writer, as *Arrays, ps *PostProcessors) {
	last := max(as.LastRound(), ps.LastRound())

	t := table.NewWriter()
	t.SetTitle("Schedule")

	header := table.Row{"Round"}
	for _, a := range as.All() {
		header = append(header, fmt.Sprintf("A%d", a.ID))
	}
	for _, p := range ps.All() {
		header = append(header, fmt.Sprintf("PP%d", p.ID))
	}
	t.AppendHeader(header)

	for r := 0; r <= last; r++ {
		row := table.Row{r}

		for _, a := range as.All() {
			cell := "-"
			if op, ok := a.Op(r); ok {
				cell = opLabel(as.arena, op)
			}
			row = append(row, cell)
		}

		for _, p := range ps.All() {
			cell := "-"
			if op, ok := p.Op(r); ok {
				cell = opLabel(ps.arena, op)
			}
			row = append(row, cell)
		}

		t.AppendRow(row)
	}

	fmt.Fprintln(w, t.Render())
}
