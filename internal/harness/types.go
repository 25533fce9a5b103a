package harness

import "github.com/roach88/readtrack/internal/ir"

// Step operations, as recorded in TraceEvent.Op.
const (
	OpAdmit   = "admit"
	OpReplace = "replace"
	OpExists  = "exists"
	OpCount   = "count"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Op      string   `json:"op"`
	Input   ir.Value `json:"input"`
	Outcome ir.Value `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Final is the serialized buffer after the last step.
	Final []byte `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(op string, input, outcome ir.Value) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Op:      op,
		Input:   input,
		Outcome: outcome,
	})
}
