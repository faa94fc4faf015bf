package scheduler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/trigger"
)

// Hook observes a lifecycle transition of a top-level command.
type Hook func(command.Command)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGate shares a process-wide disable gate.
func WithGate(g *Gate) Option {
	return func(s *Scheduler) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithRegistry shares a grouped-command registry.
func WithRegistry(r *command.Registry) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithClock sets the logical tick clock.
func WithClock(c *Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// Scheduler runs commands cooperatively, one Tick at a time.
//
// A Scheduler is not safe for concurrent use. Schedule, Cancel and Tick
// must all be called from the goroutine that drives the loop; commands,
// bindings and hooks may call back into it freely.
type Scheduler struct {
	logger   *slog.Logger
	registry *command.Registry
	gate     *Gate
	clock    *Clock

	running *runningSet
	owners  map[command.Resource]command.Command

	// registration order; defaults may hold nil
	resources []command.Resource
	defaults  map[command.Resource]command.Command

	pollers []trigger.Poller

	pendingSchedule *scheduleQueue
	pendingCancel   cancelQueue
	inRunLoop       bool
	preempting      bool
	disabled        bool

	initHooks      []Hook
	executeHooks   []Hook
	interruptHooks []Hook
	finishHooks    []Hook
}

// New creates an enabled scheduler with no resources and no bindings.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry:        command.NewRegistry(),
		gate:            NewGate(),
		clock:           NewClock(),
		running:         newRunningSet(),
		owners:          make(map[command.Resource]command.Command),
		defaults:        make(map[command.Resource]command.Command),
		pendingSchedule: newScheduleQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the grouped-command registry groups must be built with.
func (s *Scheduler) Registry() *command.Registry { return s.registry }

// Gate returns the process-wide disable gate.
func (s *Scheduler) Gate() *Gate { return s.gate }

// Clock returns the logical tick clock.
func (s *Scheduler) Clock() *Clock { return s.clock }

// Schedule admits cmd, preempting interruptible owners of its resources.
//
// Inside Tick's run loop the request is deferred until the loop ends.
// Requests made by a preempted command's End or interrupt hooks are
// deferred until cmd has been admitted, then applied in order; their errors
// are joined into the returned error.
// Scheduling a grouped command fails with GROUPED_COMMAND_SCHEDULED_DIRECTLY.
// Requests that collide with a non-interruptible owner, arrive while the
// scheduler or gate is disabled, or name an already running command are
// dropped without error.
func (s *Scheduler) Schedule(cmd command.Command, interruptible bool) error {
	if err := command.CheckComparable(cmd); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if s.inRunLoop || s.preempting {
		s.pendingSchedule.Enqueue(cmd, interruptible)
		return nil
	}
	if s.registry.IsGrouped(cmd) {
		return command.NewGroupedScheduledError(cmd)
	}
	if s.disabled || (s.gate.Disabled() && !cmd.RunsWhenDisabled()) || s.running.Contains(cmd) {
		return nil
	}

	needed := dedupe(cmd.Requirements())

	// validate: every conflicting owner must be interruptible
	conflicting := make(map[command.Command]struct{})
	for _, r := range needed {
		owner, ok := s.owners[r]
		if !ok {
			continue
		}
		st, _ := s.running.Get(owner)
		if st == nil || !st.interruptible {
			s.logger.Debug("schedule refused",
				"command", command.NameOf(cmd),
				"resource", command.NameOf(r),
				"owner", command.NameOf(owner),
				"tick", s.clock.Current())
			return nil
		}
		conflicting[owner] = struct{}{}
	}

	if len(conflicting) == 0 {
		s.admit(cmd, interruptible, needed)
		return nil
	}

	// commit: displace owners in admission order. Nothing an End does may
	// claim the freed resources before cmd holds them.
	s.preempting = true
	for _, owner := range s.running.Commands() {
		if _, ok := conflicting[owner]; ok {
			s.logger.Debug("command preempted",
				"command", command.NameOf(owner),
				"by", command.NameOf(cmd),
				"tick", s.clock.Current())
			s.stop(owner, true)
		}
	}
	s.preempting = false

	s.admit(cmd, interruptible, needed)

	var errs []error
	for _, req := range s.pendingSchedule.Drain() {
		if err := s.Schedule(req.cmd, req.interruptible); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s after preemption: %w", command.NameOf(req.cmd), err))
		}
	}
	return errors.Join(errs...)
}

// ScheduleAll schedules each command in order and returns the first error.
func (s *Scheduler) ScheduleAll(interruptible bool, cmds ...command.Command) error {
	for _, c := range cmds {
		if err := s.Schedule(c, interruptible); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) admit(cmd command.Command, interruptible bool, needed []command.Resource) {
	// Ownership is recorded before Initialize so a schedule issued from
	// Initialize sees the resources as taken.
	s.running.Add(cmd, &runState{
		interruptible: interruptible,
		requirements:  needed,
		admittedTick:  s.clock.Current(),
	})
	for _, r := range needed {
		s.owners[r] = cmd
	}
	s.logger.Debug("command admitted",
		"command", command.NameOf(cmd),
		"interruptible", interruptible,
		"tick", s.clock.Current())
	cmd.Initialize()
	if s.running.Contains(cmd) {
		runHooks(s.initHooks, cmd)
	}
}

// Cancel interrupts running commands. Inside Tick's run loop the request is
// deferred until the loop ends. Commands that are not running are ignored.
func (s *Scheduler) Cancel(cmds ...command.Command) {
	if s.inRunLoop {
		s.pendingCancel.Enqueue(cmds...)
		return
	}
	for _, c := range cmds {
		if c == nil || command.CheckComparable(c) != nil {
			continue
		}
		if !s.running.Contains(c) {
			continue
		}
		s.logger.Debug("command cancelled", "command", command.NameOf(c), "tick", s.clock.Current())
		s.stop(c, true)
	}
}

// CancelAll interrupts every running command.
func (s *Scheduler) CancelAll() {
	s.Cancel(s.running.Commands()...)
}

// stop removes cmd, releases what it owns and ends it. The command leaves
// the running set before End runs, so End sees it as stopped and a nested
// Cancel cannot end it twice.
func (s *Scheduler) stop(cmd command.Command, interrupted bool) {
	st, ok := s.running.Get(cmd)
	if !ok {
		return
	}
	s.running.Remove(cmd)
	for _, r := range st.requirements {
		if s.owners[r] == cmd {
			delete(s.owners, r)
		}
	}
	cmd.End(interrupted)
	if interrupted {
		runHooks(s.interruptHooks, cmd)
	} else {
		runHooks(s.finishHooks, cmd)
	}
}

// Tick runs one scheduler iteration.
//
// The returned error joins every failure raised by binding polls, deferred
// schedules and default-command schedules during this tick. The tick is
// always run to completion.
func (s *Scheduler) Tick() error {
	if s.disabled {
		return nil
	}
	tick := s.clock.Next()

	for _, r := range append([]command.Resource(nil), s.resources...) {
		r.Periodic()
	}

	var errs []error
	for _, poll := range append([]trigger.Poller(nil), s.pollers...) {
		if err := poll(); err != nil {
			errs = append(errs, fmt.Errorf("poll binding: %w", err))
		}
	}

	s.runCommands()

	for _, req := range s.pendingSchedule.Drain() {
		if err := s.Schedule(req.cmd, req.interruptible); err != nil {
			errs = append(errs, fmt.Errorf("deferred schedule %s: %w", command.NameOf(req.cmd), err))
		}
	}
	for _, c := range s.pendingCancel.Drain() {
		s.Cancel(c)
	}

	for _, r := range append([]command.Resource(nil), s.resources...) {
		def := s.defaults[r]
		if def == nil {
			continue
		}
		if _, owned := s.owners[r]; owned {
			continue
		}
		if err := s.Schedule(def, true); err != nil {
			errs = append(errs, fmt.Errorf("default command for %s: %w", command.NameOf(r), err))
		}
	}

	if len(errs) > 0 {
		s.logger.Warn("tick completed with errors", "tick", tick, "errors", len(errs))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runCommands() {
	s.inRunLoop = true
	defer func() { s.inRunLoop = false }()

	for _, cmd := range s.running.Commands() {
		if !s.running.Contains(cmd) {
			continue
		}
		if s.gate.Disabled() && !cmd.RunsWhenDisabled() {
			s.logger.Debug("command stopped by disable gate", "command", command.NameOf(cmd))
			s.stop(cmd, true)
			continue
		}
		cmd.Execute()
		runHooks(s.executeHooks, cmd)
		if cmd.IsFinished() {
			s.logger.Debug("command finished", "command", command.NameOf(cmd), "tick", s.clock.Current())
			s.stop(cmd, false)
		}
	}
}

// IsScheduled reports whether every given command is running.
func (s *Scheduler) IsScheduled(cmds ...command.Command) bool {
	for _, c := range cmds {
		if c == nil || command.CheckComparable(c) != nil || !s.running.Contains(c) {
			return false
		}
	}
	return true
}

// Requiring returns the command that owns r, or nil.
func (s *Scheduler) Requiring(r command.Resource) command.Command {
	return s.owners[r]
}

// Running returns the running commands in admission order.
func (s *Scheduler) Running() []command.Command {
	return s.running.Commands()
}

// RegisterResource adds r to the periodic list with an optional default
// command. Registering r again keeps its position and replaces the default;
// a nil def clears it.
func (s *Scheduler) RegisterResource(r command.Resource, def command.Command) error {
	if r == nil {
		return errors.New("register resource: nil resource")
	}
	if def != nil {
		if err := s.validateDefault(r, def); err != nil {
			return err
		}
	}
	s.addResource(r)
	s.defaults[r] = def
	return nil
}

// RegisterResources adds resources without defaults. Already registered
// resources keep their default.
func (s *Scheduler) RegisterResources(rs ...command.Resource) {
	for _, r := range rs {
		if r == nil {
			continue
		}
		s.addResource(r)
	}
}

// UnregisterResource removes resources from the periodic list and drops
// their defaults. Commands currently owning them are left running.
func (s *Scheduler) UnregisterResource(rs ...command.Resource) {
	for _, r := range rs {
		delete(s.defaults, r)
		for i, have := range s.resources {
			if have == r {
				s.resources = append(s.resources[:i], s.resources[i+1:]...)
				break
			}
		}
	}
}

// SetDefaultCommand sets the command scheduled for r whenever it is idle at
// the end of a tick. The command must require r and must not already be
// finished. A nil cmd clears the default.
func (s *Scheduler) SetDefaultCommand(r command.Resource, cmd command.Command) error {
	if r == nil {
		return errors.New("set default command: nil resource")
	}
	if cmd != nil {
		if err := s.validateDefault(r, cmd); err != nil {
			return err
		}
	}
	s.addResource(r)
	s.defaults[r] = cmd
	return nil
}

// DefaultCommand returns the default command for r, or nil.
func (s *Scheduler) DefaultCommand(r command.Resource) command.Command {
	return s.defaults[r]
}

func (s *Scheduler) validateDefault(r command.Resource, cmd command.Command) error {
	if err := command.CheckComparable(cmd); err != nil {
		return command.NewInvalidDefaultError(nil, err.Error())
	}
	if !contains(cmd.Requirements(), r) {
		return command.NewInvalidDefaultError(cmd,
			fmt.Sprintf("default command must require %s", command.NameOf(r)))
	}
	if cmd.IsFinished() {
		return command.NewInvalidDefaultError(cmd, "default command must not already be finished")
	}
	if s.registry.IsGrouped(cmd) {
		return command.NewInvalidDefaultError(cmd, "default command must not be grouped")
	}
	return nil
}

func (s *Scheduler) addResource(r command.Resource) {
	if !contains(s.resources, r) {
		s.resources = append(s.resources, r)
	}
}

// AddPoller registers a per-tick polling closure. Pollers run in
// registration order and cannot be removed.
func (s *Scheduler) AddPoller(p trigger.Poller) {
	if p != nil {
		s.pollers = append(s.pollers, p)
	}
}

// BindTrigger binds cmds to t with the given binding kind.
func (s *Scheduler) BindTrigger(t *trigger.Trigger, kind trigger.Kind, interruptible bool, cmds ...command.Command) error {
	return t.Bind(s, kind, interruptible, cmds...)
}

// Enable resumes ticking.
func (s *Scheduler) Enable() { s.disabled = false }

// Disable makes Tick and Schedule no-ops. Running commands stay running.
func (s *Scheduler) Disable() { s.disabled = true }

// IsDisabled reports whether the scheduler itself is disabled.
func (s *Scheduler) IsDisabled() bool { return s.disabled }

// OnInitialize registers a hook run after a command is admitted.
func (s *Scheduler) OnInitialize(h Hook) { s.initHooks = appendHook(s.initHooks, h) }

// OnExecute registers a hook run after each Execute.
func (s *Scheduler) OnExecute(h Hook) { s.executeHooks = appendHook(s.executeHooks, h) }

// OnInterrupt registers a hook run after End(true).
func (s *Scheduler) OnInterrupt(h Hook) { s.interruptHooks = appendHook(s.interruptHooks, h) }

// OnFinish registers a hook run after End(false).
func (s *Scheduler) OnFinish(h Hook) { s.finishHooks = appendHook(s.finishHooks, h) }

func appendHook(hooks []Hook, h Hook) []Hook {
	if h == nil {
		return hooks
	}
	return append(hooks, h)
}

func runHooks(hooks []Hook, cmd command.Command) {
	for _, h := range hooks {
		h(cmd)
	}
}

func contains(set []command.Resource, r command.Resource) bool {
	for _, have := range set {
		if have == r {
			return true
		}
	}
	return false
}

func dedupe(rs []command.Resource) []command.Resource {
	out := make([]command.Resource, 0, len(rs))
	for _, r := range rs {
		if r != nil && !contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
