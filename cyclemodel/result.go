package cyclemodel

// Failure tells why a replay was aborted.
type Failure string

// Failure reasons.
const (
	FailureNone     Failure = ""
	FailureTimeout  Failure = "timeout"
	FailureLivelock Failure = "livelock"
)

// Result summarizes a replay. NoCycles is -1 if the replay was aborted.
type Result struct {
	RunID string `json:"run_id" yaml:"run_id"`

	NoCycles     int `json:"no_cycles" yaml:"no_cycles"`
	ArrayCycles  int `json:"array_cycles" yaml:"array_cycles"`
	PostCycles   int `json:"post_cycles" yaml:"post_cycles"`
	WarmUpCycles int `json:"warm_up_cycles" yaml:"warm_up_cycles"`
	NoMainRounds int `json:"no_main_rounds" yaml:"no_main_rounds"`
	NoPostRounds int `json:"no_post_rounds" yaml:"no_post_rounds"`

	XBytes     float64 `json:"x_tiles_bw_usage" yaml:"x_tiles_bw_usage"`
	WBytes     float64 `json:"w_tiles_bw_usage" yaml:"w_tiles_bw_usage"`
	PBytes     float64 `json:"p_tiles_bw_usage" yaml:"p_tiles_bw_usage"`
	TotalBytes float64 `json:"total_bw_usage" yaml:"total_bw_usage"`

	NoOps          int `json:"no_ops" yaml:"no_ops"`
	NoPostOps      int `json:"no_post_ops" yaml:"no_post_ops"`
	SRAMReadBytes  int `json:"total_sram_read_bytes" yaml:"total_sram_read_bytes"`
	SRAMWriteBytes int `json:"total_sram_write_bytes" yaml:"total_sram_write_bytes"`

	MemoryStallCycles int     `json:"memory_stall_cycles" yaml:"memory_stall_cycles"`
	DramStalls        int     `json:"dram_stalls" yaml:"dram_stalls"`
	ArrayUtilization  float64 `json:"array_utilization" yaml:"array_utilization"`

	SRAMRoundTrip   int `json:"sram_round_trip" yaml:"sram_round_trip"`
	PPLatencyOffset int `json:"pp_latency_offset" yaml:"pp_latency_offset"`

	Livelock bool    `json:"livelock" yaml:"livelock"`
	Failure  Failure `json:"failure,omitempty" yaml:"failure,omitempty"`

	// FailedRound is the round the replay was waiting for when it aborted.
	FailedRound int `json:"failed_round,omitempty" yaml:"failed_round,omitempty"`

	NoLayers     int `json:"no_layers" yaml:"no_layers"`
	TotalGEMMOps int `json:"total_no_gemm_ops" yaml:"total_no_gemm_ops"`
}

// Failed tells if the replay was aborted.
func (r *Result) Failed() bool {
	return r.Failure != FailureNone
}

// RoundRecord describes one completed round. It is the item of the
// HookPosRoundComplete hook.
type RoundRecord struct {
	Round       int
	StartCycle  int
	EndCycle    int
	StallCycles int
	XUsed       int
	WUsed       int
	PUsed       int
}
