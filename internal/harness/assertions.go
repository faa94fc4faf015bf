package harness

import (
	"fmt"
	"slices"
	"strings"
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

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [tick %d] %s %s\n", ev.Tick, ev.Event, ev.Command)
		}
	}
	return buf.String()
}

// matches reports whether ev satisfies m. Empty event and zero tick match
// anything.
func (m TraceMatch) matches(ev TraceEvent) bool {
	return ev.Command == m.Command &&
		(m.Event == "" || ev.Event == m.Event) &&
		(m.Tick == 0 || ev.Tick == m.Tick)
}

func (m TraceMatch) String() string {
	var b strings.Builder
	if m.Event == "" {
		b.WriteString("any event")
	} else {
		b.WriteString(m.Event)
	}
	b.WriteString(" of ")
	b.WriteString(m.Command)
	if m.Tick > 0 {
		fmt.Fprintf(&b, " on tick %d", m.Tick)
	}
	return b.String()
}

func (a Assertion) match() TraceMatch {
	return TraceMatch{Event: a.Event, Command: a.Command, Tick: a.Tick}
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	m := a.match()
	for _, ev := range trace {
		if m.matches(ev) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: m.String(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the listed events occur in order.
// Intervening events are allowed; each entry matches the first event after
// the previous entry's match.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for i, m := range a.Order {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if m.matches(ev) {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("%s not found", m)
			if i > 0 {
				actual = fmt.Sprintf("%s not found after %s", m, a.Order[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %s", joinMatches(a.Order)),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

func joinMatches(ms []TraceMatch) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

// assertTraceCount checks the exact number of matching events.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	m := a.match()
	count := 0
	for _, ev := range trace {
		if m.matches(ev) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, m),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertRunning checks the final running set, in admission order.
func assertRunning(result *Result, a Assertion) error {
	want := a.Commands
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(result.Running, want) {
		return &AssertionError{
			Type:     AssertRunning,
			Expected: fmt.Sprintf("running %v", want),
			Actual:   fmt.Sprintf("running %v", result.Running),
		}
	}
	return nil
}

// assertOwner checks the final owner of a resource.
func assertOwner(result *Result, a Assertion) error {
	got := result.Owners[a.Resource]
	if got == a.Command {
		return nil
	}
	describe := func(owner string) string {
		if owner == "" {
			return "idle"
		}
		return "owned by " + owner
	}
	return &AssertionError{
		Type:     AssertOwner,
		Expected: fmt.Sprintf("%s %s", a.Resource, describe(a.Command)),
		Actual:   fmt.Sprintf("%s %s", a.Resource, describe(got)),
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertRunning:
			err = assertRunning(result, a)
		case AssertOwner:
			err = assertOwner(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errors
}
