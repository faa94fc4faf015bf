package command

import (
	"fmt"
	"reflect"
)

// Resource is an exclusive-access handle to an actuator or logical
// subsystem. Periodic is called by the scheduler once per tick, before any
// command runs, and must not block.
type Resource interface {
	Periodic()
}

// Command is a schedulable unit of work.
//
// Requirements is queried at schedule time and treated as immutable while
// the command runs.
type Command interface {
	Initialize()
	Execute()
	End(interrupted bool)
	IsFinished() bool
	Requirements() []Resource
	RunsWhenDisabled() bool
}

// Named is implemented by commands and resources that carry a display name.
type Named interface {
	Name() string
}

// NameOf returns a display name for a command or resource: its Name() when
// it has one, otherwise its Go type.
func NameOf(v any) string {
	if v == nil {
		return "<nil>"
	}
	if n, ok := v.(Named); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Base is the foundation embedded by most commands. It provides the default
// behaviour of the contract: empty lifecycle methods, never finishes, does
// not run when disabled. Embedders override what they need.
type Base struct {
	name         string
	requirements []Resource
}

// Name returns the name set with SetName.
func (b *Base) Name() string { return b.name }

// SetName sets the display name used in logs and traces.
func (b *Base) SetName(name string) { b.name = name }

// AddRequirements appends resources to the requirement set, keeping
// declaration order and dropping duplicates.
func (b *Base) AddRequirements(resources ...Resource) {
	for _, r := range resources {
		if r == nil || containsResource(b.requirements, r) {
			continue
		}
		b.requirements = append(b.requirements, r)
	}
}

// Requirements returns the declared resources.
func (b *Base) Requirements() []Resource { return b.requirements }

func (b *Base) Initialize()      {}
func (b *Base) Execute()         {}
func (b *Base) End(bool)         {}
func (b *Base) IsFinished() bool { return false }

// RunsWhenDisabled reports false; time-only commands override it.
func (b *Base) RunsWhenDisabled() bool { return false }

func containsResource(set []Resource, r Resource) bool {
	for _, have := range set {
		if have == r {
			return true
		}
	}
	return false
}

// Overlaps reports whether a and b share at least one resource.
func Overlaps(a, b []Resource) bool {
	for _, r := range a {
		if containsResource(b, r) {
			return true
		}
	}
	return false
}

// unionRequirements merges the requirements of cmds into dst, preserving
// first-seen order.
func unionRequirements(dst []Resource, cmds ...Command) []Resource {
	for _, c := range cmds {
		for _, r := range c.Requirements() {
			if !containsResource(dst, r) {
				dst = append(dst, r)
			}
		}
	}
	return dst
}

// CheckComparable rejects nil commands and commands whose dynamic type
// cannot be used as a map key.
func CheckComparable(cmds ...Command) error {
	for i, c := range cmds {
		if c == nil {
			return fmt.Errorf("command %d is nil", i)
		}
		if !reflect.TypeOf(c).Comparable() {
			return fmt.Errorf("command %s is not comparable; use a pointer type", NameOf(c))
		}
	}
	return nil
}
