// Package integrity flags response patterns that suggest non-engaged
// answering: acquiescence, straightlining, implausibly fast completion and
// failed attention checks.
package integrity

import (
	"fmt"
	"time"

	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/response"
)

// Options tunes the detectors. Zero fields fall back to defaults.
type Options struct {
	AgreeFloor        float64       // values at or above count as extreme agreement
	StraightlineRun   int           // consecutive identical answers that trip the flag
	MinSecondsPerItem time.Duration // plausibility floor per answered item
}

// DefaultOptions returns the built-in thresholds.
func DefaultOptions() Options {
	return Options{
		AgreeFloor:        6,
		StraightlineRun:   8,
		MinSecondsPerItem: 2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AgreeFloor <= 0 {
		o.AgreeFloor = d.AgreeFloor
	}
	if o.StraightlineRun <= 1 {
		o.StraightlineRun = d.StraightlineRun
	}
	if o.MinSecondsPerItem <= 0 {
		o.MinSecondsPerItem = d.MinSecondsPerItem
	}
	return o
}

// Result is the verdict for one assessment instance.
type Result struct {
	AcquiescenceBias     float64 `json:"acquiescence_bias"`
	Straightlining       bool    `json:"straightlining"`
	CompletionTimeFlag   bool    `json:"completion_time_flag"`
	AttentionCheckPassed bool    `json:"attention_check_passed"`
}

// Neutral is the verdict for an empty response set.
func Neutral() Result {
	return Result{AttentionCheckPassed: true}
}

// Flags returns human-readable warnings for every triggered detector.
func (r Result) Flags(opts Options) []string {
	opts = opts.withDefaults()
	var flags []string
	if r.AcquiescenceBias >= 0.8 {
		flags = append(flags, fmt.Sprintf("%.0f%% of answers at the agree end (>= %.0f)", r.AcquiescenceBias*100, opts.AgreeFloor))
	}
	if r.Straightlining {
		flags = append(flags, fmt.Sprintf("%d or more identical answers in a row", opts.StraightlineRun))
	}
	if r.CompletionTimeFlag {
		flags = append(flags, "completed faster than plausible")
	}
	if !r.AttentionCheckPassed {
		flags = append(flags, "attention check answered incorrectly")
	}
	return flags
}

// Suspicious reports whether any detector fired.
func (r Result) Suspicious() bool {
	return r.Straightlining || r.CompletionTimeFlag || !r.AttentionCheckPassed || r.AcquiescenceBias >= 0.8
}

// Check inspects the responses of one assessment instance. elapsed <= 0
// means the completion time is unknown and never flags. The function never
// fails; a nil bank simply disables the attention check.
func Check(rs []response.UserResponse, elapsed time.Duration, bank *itembank.Bank, opts Options) Result {
	opts = opts.withDefaults()
	if len(rs) == 0 {
		return Neutral()
	}

	ordered := make([]response.UserResponse, len(rs))
	copy(ordered, rs)
	response.SortByTime(ordered)

	return Result{
		AcquiescenceBias:     acquiescence(ordered, opts.AgreeFloor),
		Straightlining:       longestRun(ordered) >= opts.StraightlineRun,
		CompletionTimeFlag:   tooFast(len(ordered), elapsed, opts.MinSecondsPerItem),
		AttentionCheckPassed: attentionPassed(ordered, bank),
	}
}

func acquiescence(rs []response.UserResponse, floor float64) float64 {
	agree := 0
	for _, r := range rs {
		if r.Value >= floor {
			agree++
		}
	}
	return float64(agree) / float64(len(rs))
}

func longestRun(rs []response.UserResponse) int {
	if len(rs) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(rs); i++ {
		if rs[i].Value == rs[i-1].Value {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func tooFast(n int, elapsed, perItem time.Duration) bool {
	if elapsed <= 0 || n == 0 {
		return false
	}
	return elapsed < time.Duration(n)*perItem
}

func attentionPassed(rs []response.UserResponse, bank *itembank.Bank) bool {
	if bank == nil {
		return true
	}
	for _, r := range rs {
		it, ok := bank.Item(r.ItemID)
		if !ok || !it.IsAttentionCheck() {
			continue
		}
		if r.Value != it.AttentionCheck.Expected {
			return false
		}
	}
	return true
}
