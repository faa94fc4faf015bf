package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/scheduler"
	"github.com/roach88/tickr/internal/trigger"
)

// Config controls how a scenario is turned into a live scheduler.
type Config struct {
	// Clock drives wait commands. Nil means the wall clock.
	Clock command.Clock

	// Logger is shared with the scheduler. Nil discards.
	Logger *slog.Logger

	// SchedulerOptions are applied after the logger option.
	SchedulerOptions []scheduler.Option
}

// World is a scenario wired into a scheduler: its resources, commands,
// input signals and bindings, plus the steps still to apply.
//
// A World is driven one tick at a time: BeginTick, then Scheduler.Tick.
// Like the scheduler, it is not safe for concurrent use.
type World struct {
	Scheduler *scheduler.Scheduler

	scenario  *Scenario
	logger    *slog.Logger
	resources []*Resource
	byName    map[string]*Resource
	commands  map[string]command.Command
	steps     map[int64][]Step
	tick      int64
	observers []func(TraceEvent)
}

// Resource is a named scenario resource counting Periodic calls.
type Resource struct {
	name          string
	PeriodicCalls int
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Periodic counts the call.
func (r *Resource) Periodic() { r.PeriodicCalls++ }

// cycles finishes after a fixed number of executes; 0 means never.
type cycles struct {
	command.Base
	ticks            int
	runsWhenDisabled bool
	done             int
}

func (c *cycles) Initialize()            { c.done = 0 }
func (c *cycles) Execute()               { c.done++ }
func (c *cycles) IsFinished() bool       { return c.ticks > 0 && c.done >= c.ticks }
func (c *cycles) RunsWhenDisabled() bool { return c.runsWhenDisabled }

type cyclesParams struct {
	Ticks            int  `mapstructure:"ticks"`
	RunsWhenDisabled bool `mapstructure:"runs_when_disabled"`
}

type waitParams struct {
	Duration time.Duration `mapstructure:"duration"`
}

type groupParams struct {
	Children []string `mapstructure:"children"`
}

// decodeParams decodes a command's params map into out, rejecting unknown
// keys. Durations may be written as strings ("40ms").
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// Build wires a validated scenario into a new scheduler.
func Build(s *Scenario, cfg Config) (*World, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := append([]scheduler.Option{scheduler.WithLogger(logger)}, cfg.SchedulerOptions...)

	w := &World{
		Scheduler: scheduler.New(opts...),
		scenario:  s,
		logger:    logger,
		byName:    make(map[string]*Resource, len(s.Resources)),
		commands:  make(map[string]command.Command, len(s.Commands)),
		steps:     make(map[int64][]Step),
	}

	for _, name := range s.Resources {
		r := &Resource{name: name}
		w.resources = append(w.resources, r)
		w.byName[name] = r
	}

	for _, spec := range s.Commands {
		cmd, err := w.buildCommand(spec, cfg.Clock)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", spec.Name, err)
		}
		w.commands[spec.Name] = cmd
	}

	for _, r := range w.resources {
		var def command.Command
		if name, ok := s.Defaults[r.name]; ok {
			def = w.commands[name]
		}
		if err := w.Scheduler.RegisterResource(r, def); err != nil {
			return nil, fmt.Errorf("resource %s: %w", r.name, err)
		}
	}

	inputs := make(map[string]*trigger.Trigger, len(s.Inputs))
	input := func(name string) *trigger.Trigger {
		if t, ok := inputs[name]; ok {
			return t
		}
		t := trigger.New(func() bool { return w.InputActive(name) })
		inputs[name] = t
		return t
	}
	for i, b := range s.Bindings {
		node, err := parseExpr(b.Trigger, s.Inputs)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		kind, err := trigger.ParseKind(b.Kind)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		cmds := make([]command.Command, 0, len(b.Commands))
		for _, name := range b.Commands {
			cmds = append(cmds, w.commands[name])
		}
		if err := w.Scheduler.BindTrigger(node.build(input), kind, boolOr(b.Interruptible, true), cmds...); err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
	}

	for _, st := range s.Steps {
		w.steps[st.Tick] = append(w.steps[st.Tick], st)
	}

	w.Scheduler.OnInitialize(w.hook(EventInitialize))
	w.Scheduler.OnExecute(w.hook(EventExecute))
	w.Scheduler.OnInterrupt(w.hook(EventInterrupt))
	w.Scheduler.OnFinish(w.hook(EventFinish))

	return w, nil
}

func (w *World) buildCommand(spec CommandSpec, clock command.Clock) (command.Command, error) {
	reqs := make([]command.Resource, 0, len(spec.Requires))
	for _, name := range spec.Requires {
		reqs = append(reqs, w.byName[name])
	}

	var cmd interface {
		command.Command
		SetName(string)
	}
	switch spec.Kind {
	case KindInstant:
		if err := decodeParams(spec.Params, &struct{}{}); err != nil {
			return nil, err
		}
		name := spec.Name
		cmd = command.NewInstant(func() {
			w.logger.Debug("instant action", "command", name, "tick", w.tick)
		}, reqs...)

	case KindWait:
		var p waitParams
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		if p.Duration <= 0 {
			return nil, errors.New("wait needs a positive duration")
		}
		wait := command.NewWait(p.Duration, clock)
		wait.AddRequirements(reqs...)
		cmd = wait

	case KindCycles:
		var p cyclesParams
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		if p.Ticks < 0 {
			return nil, errors.New("cycles needs ticks >= 0")
		}
		c := &cycles{ticks: p.Ticks, runsWhenDisabled: p.RunsWhenDisabled}
		c.AddRequirements(reqs...)
		cmd = c

	case KindSequence, KindParallel:
		var p groupParams
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		children := make([]command.Command, 0, len(p.Children))
		for _, name := range p.Children {
			child, ok := w.commands[name]
			if !ok {
				return nil, fmt.Errorf("unknown child %q", name)
			}
			children = append(children, child)
		}
		var err error
		if spec.Kind == KindSequence {
			cmd, err = command.NewSequential(w.Scheduler.Registry(), children...)
		} else {
			cmd, err = command.NewParallel(w.Scheduler.Registry(), children...)
		}
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}

	cmd.SetName(spec.Name)
	return cmd, nil
}

func (w *World) hook(event string) scheduler.Hook {
	return func(c command.Command) {
		ev := TraceEvent{Tick: w.tick, Event: event, Command: command.NameOf(c)}
		for _, fn := range w.observers {
			fn(ev)
		}
	}
}

// OnEvent registers fn to receive every lifecycle event.
func (w *World) OnEvent(fn func(TraceEvent)) {
	if fn != nil {
		w.observers = append(w.observers, fn)
	}
}

// Tick returns the tick most recently begun.
func (w *World) Tick() int64 { return w.tick }

// Command returns a command by scenario name.
func (w *World) Command(name string) (command.Command, bool) {
	c, ok := w.commands[name]
	return c, ok
}

// Resource returns a resource by scenario name.
func (w *World) Resource(name string) (*Resource, bool) {
	r, ok := w.byName[name]
	return r, ok
}

// InputActive reports whether the named input is true on the current tick.
func (w *World) InputActive(name string) bool {
	for _, rg := range w.scenario.Inputs[name] {
		if len(rg) == 2 && w.tick >= rg[0] && w.tick <= rg[1] {
			return true
		}
	}
	return false
}

// BeginTick moves the world to tick and applies that tick's steps in file
// order. Call it before Scheduler.Tick. The returned error joins every step
// that failed or did not fail as expected.
func (w *World) BeginTick(tick int64) error {
	w.tick = tick
	var errs []error
	for _, st := range w.steps[tick] {
		if err := w.applyStep(st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *World) applyStep(st Step) error {
	s := w.Scheduler
	switch {
	case st.Schedule != "":
		err := s.Schedule(w.commands[st.Schedule], boolOr(st.Interruptible, true))
		w.logger.Debug("step schedule", "command", st.Schedule, "tick", w.tick, "err", err)
		if st.ExpectError != "" {
			if !command.HasCode(err, command.ErrorCode(st.ExpectError)) {
				return fmt.Errorf("schedule %s: want error %s, got %v", st.Schedule, st.ExpectError, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("schedule %s: %w", st.Schedule, err)
		}
	case st.Cancel != "":
		s.Cancel(w.commands[st.Cancel])
	case st.CancelAll:
		s.CancelAll()
	case st.Gate == "enable":
		s.Gate().Enable()
	case st.Gate == "disable":
		s.Gate().Disable()
	case st.Scheduler == "enable":
		s.Enable()
	case st.Scheduler == "disable":
		s.Disable()
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
