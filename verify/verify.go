// Package verify checks a compiled schedule without replaying it.
//
// RunLint reports two kinds of issues:
//
//   - STRUCT: a unit runs two ops in one round, two tiles share a bank over
//     one network in one round, or an op was never placed.
//   - TIMING: an aggregate op runs no later than its operands, a pin consumer
//     runs no later than its producer, or a layer starts before a dependency
//     ends.
//
// GenerateReport bundles the lint issues with the result of a replay.
package verify

import "github.com/sarchlab/podsim/graph"

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Placement error (double booking, bank conflict)
	IssueTiming IssueType = "TIMING" // Dependency error (result used too early)
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType      // STRUCT or TIMING
	Layer   string         // Layer of the op ("" if not applicable)
	Unit    string         // Unit such as "A3" or "PP0" ("" if not applicable)
	Round   int            // Round (-1 if not applicable)
	OpID    graph.OpID     // Operation or graph.NoOp
	Message string         // Human-readable description
	Details map[string]any // Additional structured data
}
