package verify

import (
	"fmt"
	"sort"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
)

// RunLint performs static checks on the schedule of a compiler and returns
// the issues found, STRUCT issues first.
func RunLint(c *compiler.Compiler) []Issue {
	p := c.Platform()

	var issues []Issue
	issues = append(issues, checkPlacement(p.Arena)...)
	issues = append(issues, checkUnits(p.Arena)...)
	issues = append(issues, checkBanks(c)...)
	issues = append(issues, checkCausality(p.Arena)...)
	issues = append(issues, checkLayers(c)...)

	return issues
}

func unitName(op *graph.Op) string {
	if op.Kind == graph.OpMultiply {
		return fmt.Sprintf("A%d", op.Unit)
	}

	return fmt.Sprintf("PP%d", op.Unit)
}

func checkPlacement(a *graph.Arena) []Issue {
	var issues []Issue

	for _, op := range a.Ops() {
		if op.IsPlaced() {
			continue
		}

		details := map[string]any{}
		kind := "Multiply"
		if op.Kind == graph.OpAggregate {
			kind = "Aggregate"
			details["twin"] = op.Aggr.Twin
			details["flip"] = op.Aggr.Flip
		}

		issues = append(issues, Issue{
			Type:    IssueStruct,
			Layer:   op.Layer,
			Round:   -1,
			OpID:    op.ID,
			Message: fmt.Sprintf("%s op %d was never placed", kind, op.ID),
			Details: details,
		})
	}

	return issues
}

type slot struct {
	kind  graph.OpKind
	round int
	unit  int
}

func checkUnits(a *graph.Arena) []Issue {
	var issues []Issue

	booked := make(map[slot]graph.OpID)

	for _, op := range a.Ops() {
		if !op.IsPlaced() {
			continue
		}

		s := slot{op.Kind, op.Round, op.Unit}
		if prev, ok := booked[s]; ok {
			issues = append(issues, Issue{
				Type:  IssueStruct,
				Layer: op.Layer,
				Unit:  unitName(op),
				Round: op.Round,
				OpID:  op.ID,
				Message: fmt.Sprintf("Unit %s runs op %d and op %d in round %d",
					unitName(op), prev, op.ID, op.Round),
				Details: map[string]any{"prevOp": prev},
			})

			continue
		}

		booked[s] = op.ID
	}

	return issues
}

type bankUse struct {
	round int
	net   interconnect.Network
	bank  int
}

// checkBanks reports two different tiles read or written through the same
// bank over one network in one round.
func checkBanks(c *compiler.Compiler) []Issue {
	p := c.Platform()
	a := p.Arena

	var issues []Issue

	users := make(map[bankUse]graph.TileID)
	use := func(op *graph.Op, net interconnect.Network, tid graph.TileID) {
		if tid == graph.NoTile {
			return
		}

		t := a.Tile(tid)
		if !t.IsBound() {
			issues = append(issues, Issue{
				Type:    IssueStruct,
				Layer:   op.Layer,
				Unit:    unitName(op),
				Round:   op.Round,
				OpID:    op.ID,
				Message: fmt.Sprintf("Tile %d on %s has no bank", tid, net),
			})

			return
		}

		k := bankUse{op.Round, net, t.Bank}
		if prev, ok := users[k]; ok && prev != tid {
			issues = append(issues, Issue{
				Type:  IssueStruct,
				Layer: op.Layer,
				Unit:  unitName(op),
				Round: op.Round,
				OpID:  op.ID,
				Message: fmt.Sprintf(
					"Bank %s%d serves tile %d and tile %d over %s in round %d",
					t.Kind.Name(), t.Bank, prev, tid, net, op.Round),
				Details: map[string]any{
					"network": net.String(),
					"bank":    t.Bank,
				},
			})

			return
		}

		users[k] = tid
	}

	arrayNets := []interconnect.Network{
		interconnect.NetX, interconnect.NetW, interconnect.NetPin, interconnect.NetPout,
	}
	ppNets := []interconnect.Network{
		interconnect.NetPPIn1, interconnect.NetPPIn2, interconnect.NetPPOut,
	}

	for r := 0; r < max(c.NoMainRounds(), c.NoPostRounds()); r++ {
		for _, id := range p.Arrays.Ops(r) {
			for _, net := range arrayNets {
				use(a.Op(id), net, p.Arrays.OperandTile(id, net))
			}
		}

		for _, id := range p.PostProcessors.Ops(r) {
			for _, net := range ppNets {
				use(a.Op(id), net, p.PostProcessors.OperandTile(id, net))
			}
		}
	}

	return issues
}

func checkCausality(a *graph.Arena) []Issue {
	var issues []Issue

	for _, op := range a.Ops() {
		if !op.IsPlaced() {
			continue
		}

		switch op.Kind {
		case graph.OpAggregate:
			ready := a.MaxOperandRound(op.ID)
			if op.Round <= ready {
				issues = append(issues, Issue{
					Type:  IssueTiming,
					Layer: op.Layer,
					Unit:  unitName(op),
					Round: op.Round,
					OpID:  op.ID,
					Message: fmt.Sprintf(
						"Aggregate op %d runs in round %d but an operand finishes in round %d",
						op.ID, op.Round, ready),
					Details: map[string]any{
						"producer_round": ready,
						"consumer_round": op.Round,
					},
				})
			}
		case graph.OpMultiply:
			if !op.HasPin() {
				continue
			}

			pin := a.Op(op.Mult.Pin)
			if op.Round <= pin.Round {
				issues = append(issues, Issue{
					Type:  IssueTiming,
					Layer: op.Layer,
					Unit:  unitName(op),
					Round: op.Round,
					OpID:  op.ID,
					Message: fmt.Sprintf(
						"Op %d accumulates op %d of round %d in round %d",
						op.ID, pin.ID, pin.Round, op.Round),
					Details: map[string]any{
						"producer_round": pin.Round,
						"consumer_round": op.Round,
					},
				})
			}
		}
	}

	return issues
}

type layerKey struct {
	name string
	copy int
}

// checkLayers reports ops that run before a dependency of their layer ended.
func checkLayers(c *compiler.Compiler) []Issue {
	a := c.Platform().Arena

	byName := make(map[layerKey]*compiler.Layer)
	for _, l := range c.Layers() {
		byName[layerKey{l.Name, l.Copy}] = l
	}

	var issues []Issue

	for _, l := range c.Layers() {
		deps := append([]string(nil), l.Source.Deps...)
		sort.Strings(deps)

		for _, d := range deps {
			dep, ok := byName[layerKey{d, l.Copy}]
			if !ok {
				continue
			}

			for _, id := range l.MultOps() {
				op := a.Op(id)
				if !op.IsPlaced() || op.Round > dep.EndRound {
					continue
				}

				issues = append(issues, Issue{
					Type:  IssueTiming,
					Layer: l.Name,
					Unit:  unitName(op),
					Round: op.Round,
					OpID:  id,
					Message: fmt.Sprintf(
						"Layer %s runs op %d in round %d before %s ends in round %d",
						l.Name, id, op.Round, d, dep.EndRound),
					Details: map[string]any{
						"producer_round": dep.EndRound,
						"consumer_round": op.Round,
					},
				})
			}
		}
	}

	return issues
}
