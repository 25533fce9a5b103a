package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/progress"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		input, _ := ir.MarshalValue(event.Input)
		outcome, _ := ir.MarshalValue(event.Outcome)
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Op, input, outcome)
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the final tracker.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(tracker *progress.Tracker, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordPresent:
			err = assertRecordExists(tracker, result.Trace, assertion, true)
		case AssertRecordAbsent:
			err = assertRecordExists(tracker, result.Trace, assertion, false)
		case AssertRecordFields:
			err = assertRecordFields(tracker.AllRecords(), result.Trace, assertion)
		case AssertRecordOrder:
			err = assertOrder(AssertRecordOrder, "novelId", tracker.AllRecords(), assertion.NovelIDs, result.Trace)
		case AssertSourceNames:
			err = assertOrder(AssertSourceNames, "name", tracker.AllConfigs(), assertion.Names, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertRecordExists(tracker *progress.Tracker, trace []TraceEvent, a Assertion, want bool) error {
	if tracker.Exists(a.NovelID, a.SourceURL) == want {
		return nil
	}
	typ, actual := AssertRecordPresent, "no such record"
	if !want {
		typ, actual = AssertRecordAbsent, "record exists"
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("record (%s, %s)", a.NovelID, a.SourceURL),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertRecordFields finds the first record matching every where field and
// checks the expect fields (subset match).
func assertRecordFields(records []ir.Value, trace []TraceEvent, a Assertion) error {
	for _, rv := range records {
		obj, ok := rv.(ir.Object)
		if !ok || !matchFields(obj, a.Where) {
			continue
		}

		var mismatches []string
		for _, key := range sortedKeys(a.Expect) {
			if !fieldEquals(obj, key, a.Expect[key]) {
				actual, _ := ir.MarshalValue(valueOrNull(obj, key))
				mismatches = append(mismatches, fmt.Sprintf("%s=%s (want %v)", key, actual, a.Expect[key]))
			}
		}
		if len(mismatches) == 0 {
			return nil
		}
		return &AssertionError{
			Type:     AssertRecordFields,
			Expected: fmt.Sprintf("record where %v with %v", a.Where, a.Expect),
			Actual:   strings.Join(mismatches, ", "),
			Trace:    trace,
		}
	}

	return &AssertionError{
		Type:     AssertRecordFields,
		Expected: fmt.Sprintf("record where %v", a.Where),
		Actual:   "no matching record",
		Trace:    trace,
	}
}

// assertOrder compares one string field of every entity, in order.
func assertOrder(typ, key string, entities []ir.Value, want []string, trace []TraceEvent) error {
	got := make([]string, 0, len(entities))
	for _, v := range entities {
		obj, _ := v.(ir.Object)
		s, _ := obj.StringField(key)
		got = append(got, s)
	}
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if reflect.DeepEqual(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s order %v", key, want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

func matchFields(obj ir.Object, fields map[string]interface{}) bool {
	for key, expected := range fields {
		if !fieldEquals(obj, key, expected) {
			return false
		}
	}
	return true
}

// fieldEquals converts expected to a host value and compares it with
// obj[key]. A missing field never matches.
func fieldEquals(obj ir.Object, key string, expected interface{}) bool {
	actual, ok := obj.Get(key)
	if !ok {
		return false
	}
	want, err := ir.FromAny(expected)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(actual, want)
}

func valueOrNull(obj ir.Object, key string) ir.Value {
	if v, ok := obj.Get(key); ok {
		return v
	}
	return ir.Null{}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
