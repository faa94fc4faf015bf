package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/trigger"
)

// Scenario is a scripted scheduler run: resources, commands, defaults,
// input signals, trigger bindings, direct API steps, and the assertions
// evaluated over the resulting lifecycle trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Ticks is the number of ticks to run.
	Ticks int64 `yaml:"ticks" json:"ticks"`

	// Period is how far the clock advances per tick (default 20ms).
	Period string `yaml:"period,omitempty" json:"period,omitempty"`

	// Resources are registered in this order.
	Resources []string `yaml:"resources,omitempty" json:"resources,omitempty"`

	// Commands are built in this order; groups may only name commands
	// defined before them.
	Commands []CommandSpec `yaml:"commands,omitempty" json:"commands,omitempty"`

	// Defaults maps resource names to default command names.
	Defaults map[string]string `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Inputs maps signal names to the inclusive tick ranges where they are
	// true.
	Inputs map[string][][]int64 `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	Bindings []Binding `yaml:"bindings,omitempty" json:"bindings,omitempty"`

	// Steps are direct API calls applied before the tick they name.
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`

	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// CommandSpec declares one command.
type CommandSpec struct {
	Name     string         `yaml:"name" json:"name"`
	Kind     string         `yaml:"kind" json:"kind"`
	Requires []string       `yaml:"requires,omitempty" json:"requires,omitempty"`
	Params   map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Command kinds.
const (
	KindInstant  = "instant"
	KindWait     = "wait"
	KindCycles   = "cycles"
	KindSequence = "sequence"
	KindParallel = "parallel"
)

// Binding attaches commands to a trigger expression over inputs.
type Binding struct {
	// Trigger is an input name, optionally negated with '!', joined with
	// '&' and '|' ('&' binds tighter). Parentheses group.
	Trigger       string   `yaml:"trigger" json:"trigger"`
	Kind          string   `yaml:"kind" json:"kind"`
	Commands      []string `yaml:"commands" json:"commands"`
	Interruptible *bool    `yaml:"interruptible,omitempty" json:"interruptible,omitempty"`
}

// Step is one direct API call. Exactly one action field is set.
type Step struct {
	Tick          int64  `yaml:"tick" json:"tick"`
	Schedule      string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Cancel        string `yaml:"cancel,omitempty" json:"cancel,omitempty"`
	CancelAll     bool   `yaml:"cancel_all,omitempty" json:"cancel_all,omitempty"`
	Gate          string `yaml:"gate,omitempty" json:"gate,omitempty"`
	Scheduler     string `yaml:"scheduler,omitempty" json:"scheduler,omitempty"`
	Interruptible *bool  `yaml:"interruptible,omitempty" json:"interruptible,omitempty"`

	// ExpectError is the error code the schedule call must fail with.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// Assertion validates the trace or the final scheduler state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, running,
	// owner.
	Type string `yaml:"type" json:"type"`

	// Event and Command select trace events (trace_contains, trace_count).
	// An empty Event matches any event.
	Event   string `yaml:"event,omitempty" json:"event,omitempty"`
	Command string `yaml:"command,omitempty" json:"command,omitempty"`

	// Tick restricts trace_contains and trace_count to one tick; 0 means any.
	Tick int64 `yaml:"tick,omitempty" json:"tick,omitempty"`

	// Count is the exact number of matches (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Order lists events that must appear in this relative order
	// (trace_order).
	Order []TraceMatch `yaml:"order,omitempty" json:"order,omitempty"`

	// Commands is the exact running set in admission order (running).
	Commands []string `yaml:"commands,omitempty" json:"commands,omitempty"`

	// Resource names the resource whose owner must equal Command (owner).
	// An empty Command asserts the resource is idle.
	Resource string `yaml:"resource,omitempty" json:"resource,omitempty"`
}

// TraceMatch selects trace events by event, command and optional tick.
type TraceMatch struct {
	Event   string `yaml:"event,omitempty" json:"event,omitempty"`
	Command string `yaml:"command" json:"command"`
	Tick    int64  `yaml:"tick,omitempty" json:"tick,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRunning       = "running"
	AssertOwner         = "owner"
)

// DefaultPeriod is the clock advance per tick when a scenario sets none.
const DefaultPeriod = 20 * time.Millisecond

// TickPeriod parses Period.
func (s *Scenario) TickPeriod() (time.Duration, error) {
	if s.Period == "" {
		return DefaultPeriod, nil
	}
	d, err := time.ParseDuration(s.Period)
	if err != nil {
		return 0, fmt.Errorf("period: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("period must be positive, got %s", s.Period)
	}
	return d, nil
}

// LoadScenario reads a scenario file. Files ending in .cue are compiled
// with CUE; anything else is parsed as YAML.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseScenarioCUE(data, path)
	}
	return ParseScenarioYAML(data)
}

// ParseScenarioYAML parses and validates a YAML scenario.
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finishScenario(&scenario)
}

func finishScenario(s *Scenario) (*Scenario, error) {
	normalizeScenario(s)
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return s, nil
}

// normalizeScenario puts every identifier in NFC so names typed with
// different Unicode compositions refer to the same thing.
func normalizeScenario(s *Scenario) {
	nfc := func(v string) string { return norm.NFC.String(strings.TrimSpace(v)) }
	nfcAll := func(vs []string) {
		for i := range vs {
			vs[i] = nfc(vs[i])
		}
	}

	s.Name = nfc(s.Name)
	nfcAll(s.Resources)
	for i := range s.Commands {
		c := &s.Commands[i]
		c.Name = nfc(c.Name)
		c.Kind = strings.ToLower(nfc(c.Kind))
		nfcAll(c.Requires)
		if children, ok := c.Params["children"].([]any); ok {
			for j, child := range children {
				if name, ok := child.(string); ok {
					children[j] = nfc(name)
				}
			}
		}
	}
	if s.Defaults != nil {
		defaults := make(map[string]string, len(s.Defaults))
		for r, c := range s.Defaults {
			defaults[nfc(r)] = nfc(c)
		}
		s.Defaults = defaults
	}
	if s.Inputs != nil {
		inputs := make(map[string][][]int64, len(s.Inputs))
		for name, ranges := range s.Inputs {
			inputs[nfc(name)] = ranges
		}
		s.Inputs = inputs
	}
	for i := range s.Bindings {
		b := &s.Bindings[i]
		b.Trigger = nfc(b.Trigger)
		b.Kind = nfc(b.Kind)
		nfcAll(b.Commands)
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		st.Schedule = nfc(st.Schedule)
		st.Cancel = nfc(st.Cancel)
		st.Gate = strings.ToLower(nfc(st.Gate))
		st.Scheduler = strings.ToLower(nfc(st.Scheduler))
	}
	for i := range s.Assertions {
		a := &s.Assertions[i]
		a.Command = nfc(a.Command)
		a.Resource = nfc(a.Resource)
		nfcAll(a.Commands)
		for j := range a.Order {
			a.Order[j].Command = nfc(a.Order[j].Command)
		}
	}
}

// validateScenario checks that required fields are present and every name
// refers to something declared.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}
	if _, err := s.TickPeriod(); err != nil {
		return err
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	resources := make(map[string]bool, len(s.Resources))
	for i, r := range s.Resources {
		if r == "" {
			return fmt.Errorf("resources[%d]: name is required", i)
		}
		if resources[r] {
			return fmt.Errorf("resources[%d]: duplicate resource %q", i, r)
		}
		resources[r] = true
	}

	commands := make(map[string]bool, len(s.Commands))
	for i, c := range s.Commands {
		if err := validateCommandSpec(i, c, resources, commands); err != nil {
			return err
		}
		commands[c.Name] = true
	}

	for r, c := range s.Defaults {
		if !resources[r] {
			return fmt.Errorf("defaults: unknown resource %q", r)
		}
		if !commands[c] {
			return fmt.Errorf("defaults[%s]: unknown command %q", r, c)
		}
	}

	for name, ranges := range s.Inputs {
		if name == "" {
			return fmt.Errorf("inputs: name is required")
		}
		for j, rg := range ranges {
			if len(rg) != 2 || rg[0] > rg[1] || rg[0] < 1 {
				return fmt.Errorf("inputs[%s][%d]: want [first, last] with 1 <= first <= last", name, j)
			}
		}
	}

	for i, b := range s.Bindings {
		kind, err := trigger.ParseKind(b.Kind)
		if err != nil {
			return fmt.Errorf("bindings[%d]: %w", i, err)
		}
		if len(b.Commands) != kind.Arity() {
			return fmt.Errorf("bindings[%d]: %s takes %d command(s), got %d", i, kind, kind.Arity(), len(b.Commands))
		}
		for _, c := range b.Commands {
			if !commands[c] {
				return fmt.Errorf("bindings[%d]: unknown command %q", i, c)
			}
		}
		if _, err := parseExpr(b.Trigger, s.Inputs); err != nil {
			return fmt.Errorf("bindings[%d]: %w", i, err)
		}
	}

	for i, st := range s.Steps {
		if err := validateStep(i, st, commands); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], resources, commands); err != nil {
			return err
		}
	}
	return nil
}

func validateCommandSpec(i int, c CommandSpec, resources, defined map[string]bool) error {
	if c.Name == "" {
		return fmt.Errorf("commands[%d]: name is required", i)
	}
	if defined[c.Name] {
		return fmt.Errorf("commands[%d]: duplicate command %q", i, c.Name)
	}
	for _, r := range c.Requires {
		if !resources[r] {
			return fmt.Errorf("commands[%d] (%s): unknown resource %q", i, c.Name, r)
		}
	}
	switch c.Kind {
	case KindInstant, KindWait, KindCycles:
	case KindSequence, KindParallel:
		if len(c.Requires) > 0 {
			return fmt.Errorf("commands[%d] (%s): groups take their requirements from children", i, c.Name)
		}
		var p groupParams
		if err := decodeParams(c.Params, &p); err != nil {
			return fmt.Errorf("commands[%d] (%s): %w", i, c.Name, err)
		}
		for _, child := range p.Children {
			if !defined[child] {
				return fmt.Errorf("commands[%d] (%s): child %q must be defined before the group", i, c.Name, child)
			}
		}
	case "":
		return fmt.Errorf("commands[%d] (%s): kind is required", i, c.Name)
	default:
		return fmt.Errorf("commands[%d] (%s): unknown kind %q", i, c.Name, c.Kind)
	}
	return nil
}

func validateStep(i int, st Step, commands map[string]bool) error {
	if st.Tick < 1 {
		return fmt.Errorf("steps[%d]: tick must be >= 1", i)
	}
	actions := 0
	for _, set := range []bool{st.Schedule != "", st.Cancel != "", st.CancelAll, st.Gate != "", st.Scheduler != ""} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of schedule, cancel, cancel_all, gate, scheduler is required", i)
	}
	for _, name := range []string{st.Schedule, st.Cancel} {
		if name != "" && !commands[name] {
			return fmt.Errorf("steps[%d]: unknown command %q", i, name)
		}
	}
	for _, toggle := range []string{st.Gate, st.Scheduler} {
		if toggle != "" && toggle != "enable" && toggle != "disable" {
			return fmt.Errorf("steps[%d]: want enable or disable, got %q", i, toggle)
		}
	}
	if st.ExpectError != "" {
		if st.Schedule == "" {
			return fmt.Errorf("steps[%d]: expect_error only applies to schedule", i)
		}
		if !knownErrorCode(st.ExpectError) {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, st.ExpectError)
		}
	}
	return nil
}

func knownErrorCode(code string) bool {
	switch command.ErrorCode(code) {
	case command.ErrCodeGroupedScheduled, command.ErrCodeAlreadyGrouped,
		command.ErrCodeGroupRunning, command.ErrCodeOverlapping, command.ErrCodeInvalidDefault:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, resources, commands map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	checkCommand := func(name string) error {
		if !commands[name] {
			return fmt.Errorf("assertions[%d]: unknown command %q", index, name)
		}
		return nil
	}
	checkEvent := func(event string) error {
		switch event {
		case "", EventInitialize, EventExecute, EventInterrupt, EventFinish:
			return nil
		}
		return fmt.Errorf("assertions[%d]: unknown event %q", index, event)
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for %s", index, a.Type)
		}
		if err := checkCommand(a.Command); err != nil {
			return err
		}
		if err := checkEvent(a.Event); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Order) < 2 {
			return fmt.Errorf("assertions[%d]: order needs at least two entries for trace_order", index)
		}
		for _, m := range a.Order {
			if err := checkCommand(m.Command); err != nil {
				return err
			}
			if err := checkEvent(m.Event); err != nil {
				return err
			}
		}
	case AssertRunning:
		for _, c := range a.Commands {
			if err := checkCommand(c); err != nil {
				return err
			}
		}
	case AssertOwner:
		if !resources[a.Resource] {
			return fmt.Errorf("assertions[%d]: unknown resource %q", index, a.Resource)
		}
		if a.Command != "" {
			if err := checkCommand(a.Command); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
