package harness

// Lifecycle events recorded in a trace.
const (
	EventInitialize = "initialize"
	EventExecute    = "execute"
	EventInterrupt  = "interrupt"
	EventFinish     = "finish"
)

// TraceEvent is one scheduler hook invocation.
type TraceEvent struct {
	Tick    int64  `json:"tick"`
	Event   string `json:"event"`
	Command string `json:"command"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when no step, tick or assertion failed.
	Pass bool `json:"pass"`

	// Trace lists lifecycle events in the order the scheduler raised them.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Running lists the commands still running after the last tick, in
	// admission order.
	Running []string `json:"running"`

	// Owners maps each owned resource to its command after the last tick.
	Owners map[string]string `json:"owners"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Running: []string{},
		Owners:  make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a lifecycle event.
func (r *Result) AddTrace(tick int64, event, command string) {
	r.Trace = append(r.Trace, TraceEvent{Tick: tick, Event: event, Command: command})
}
