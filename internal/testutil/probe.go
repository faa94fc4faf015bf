package testutil

import (
	"fmt"

	"github.com/roach88/tickr/internal/command"
)

// Log collects lifecycle events from probes in call order, as
// "<name>.<phase>" strings (e.g. "raise.init", "raise.end(false)").
type Log struct {
	Events []string
}

func (l *Log) add(format string, args ...any) {
	if l != nil {
		l.Events = append(l.Events, fmt.Sprintf(format, args...))
	}
}

// Reset clears the log.
func (l *Log) Reset() {
	if l != nil {
		l.Events = nil
	}
}

// Resource is a named command.Resource counting Periodic calls.
type Resource struct {
	name          string
	PeriodicCalls int
	log           *Log
}

// NewResource creates a resource. log may be nil.
func NewResource(name string, log *Log) *Resource {
	return &Resource{name: name, log: log}
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Periodic counts the call.
func (r *Resource) Periodic() {
	r.PeriodicCalls++
	r.log.add("%s.periodic", r.name)
}

// Probe is a command that finishes after a fixed number of executes and
// records every lifecycle call.
//
// FinishAfter == 0 means the probe never finishes on its own.
type Probe struct {
	command.Base

	FinishAfter   int
	DisabledRuns  bool
	Inits         int
	Executes      int
	Ends          []bool
	OnExecute     func()
	OnInitialize  func()
	OnEnd         func(interrupted bool)
	executesSince int
	log           *Log
}

// NewProbe creates a probe named name requiring resources.
func NewProbe(name string, finishAfter int, log *Log, requirements ...command.Resource) *Probe {
	p := &Probe{FinishAfter: finishAfter, log: log}
	p.SetName(name)
	p.AddRequirements(requirements...)
	return p
}

// Initialize records the call.
func (p *Probe) Initialize() {
	p.Inits++
	p.executesSince = 0
	p.log.add("%s.init", p.Name())
	if p.OnInitialize != nil {
		p.OnInitialize()
	}
}

// Execute records the call.
func (p *Probe) Execute() {
	p.Executes++
	p.executesSince++
	p.log.add("%s.exec", p.Name())
	if p.OnExecute != nil {
		p.OnExecute()
	}
}

// End records the call and its interrupted flag.
func (p *Probe) End(interrupted bool) {
	p.Ends = append(p.Ends, interrupted)
	p.log.add("%s.end(%t)", p.Name(), interrupted)
	if p.OnEnd != nil {
		p.OnEnd(interrupted)
	}
}

// IsFinished is true once FinishAfter executes happened in this run.
func (p *Probe) IsFinished() bool {
	return p.FinishAfter > 0 && p.executesSince >= p.FinishAfter
}

// RunsWhenDisabled returns DisabledRuns.
func (p *Probe) RunsWhenDisabled() bool { return p.DisabledRuns }

// EndCount returns how many times End was called.
func (p *Probe) EndCount() int { return len(p.Ends) }

// LastEnd returns the interrupted flag of the last End call.
func (p *Probe) LastEnd() (interrupted bool, ok bool) {
	if len(p.Ends) == 0 {
		return false, false
	}
	return p.Ends[len(p.Ends)-1], true
}
