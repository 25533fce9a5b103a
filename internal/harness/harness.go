package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
	"github.com/roach88/readtrack/internal/testutil"
)

// Harness executes scenario steps against one tracker.
type Harness struct {
	tracker *progress.Tracker
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes tracker diagnostics to logger. Logs are discarded by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the initial buffer into a fresh tracker
// 2. Execute steps in order, checking expect clauses
// 3. Evaluate assertions against the final tracker
//
// An error is returned only when a step cannot be executed at all, such as
// an admit value that has no host representation.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.tracker = progress.LoadTracker(initialBuffer(scenario.Initial), progress.WithLogger(h.logger))

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(h.tracker, result, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Final = h.tracker.Serialize()
	return result, nil
}

func initialBuffer(initial string) []byte {
	if initial == "" || initial == InitialDefault {
		return progress.EncodeSources([]source.Config{source.Default()})
	}
	return []byte(initial)
}

func (h *Harness) execute(step Step, result *Result) error {
	seq := len(result.Trace) + 1

	switch step.op() {
	case OpAdmit:
		v, err := ir.FromAny(step.Admit)
		if err != nil {
			return fmt.Errorf("admit: %w", err)
		}
		v = progress.StampReadAt(v, h.clock.Now().UnixMilli())
		admitted := h.tracker.AdmitRecord(v)
		result.addTrace(OpAdmit, v, ir.Bool(admitted))
		checkExpect(result, seq, OpAdmit, step.Expect, admitted)

	case OpReplace:
		h.tracker.ReplaceAll([]byte(*step.Replace))
		result.addTrace(OpReplace, ir.String(*step.Replace), h.counts())

	case OpExists:
		q := step.Exists
		found := h.tracker.Exists(q.NovelID, q.SourceURL)
		input := ir.Obj(ir.O("novelId", ir.String(q.NovelID)), ir.O("sourceUrl", ir.String(q.SourceURL)))
		result.addTrace(OpExists, input, ir.Bool(found))
		checkExpect(result, seq, OpExists, step.Expect, found)

	case OpCount:
		q := step.Count
		want := ir.Obj(ir.O("sources", ir.Int(q.Sources)), ir.O("records", ir.Int(q.Records)))
		got := h.counts()
		result.addTrace(OpCount, want, got)
		if h.tracker.NumConfigs() != q.Sources || h.tracker.NumRecords() != q.Records {
			result.AddError(fmt.Sprintf("step %d (count): expected %d sources, %d records; got %d sources, %d records",
				seq, q.Sources, q.Records, h.tracker.NumConfigs(), h.tracker.NumRecords()))
		}

	default:
		return fmt.Errorf("step sets no single operation")
	}
	return nil
}

func (h *Harness) counts() ir.Object {
	return ir.Obj(
		ir.O("sources", ir.Int(h.tracker.NumConfigs())),
		ir.O("records", ir.Int(h.tracker.NumRecords())),
	)
}

func checkExpect(result *Result, seq int, op string, expect *bool, got bool) {
	if expect == nil || *expect == got {
		return
	}
	result.AddError(fmt.Sprintf("step %d (%s): expected %t, got %t", seq, op, *expect, got))
}
