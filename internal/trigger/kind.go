package trigger

import (
	"fmt"
	"strings"

	"github.com/roach88/tickr/internal/command"
)

// Kind names a binding behaviour.
type Kind string

const (
	KindOnRisingEdge       Kind = "on_rising_edge"
	KindWhileTrueRepeating Kind = "while_true_repeating"
	KindWhileTrueOnce      Kind = "while_true_once"
	KindOnFallingEdge      Kind = "on_falling_edge"
	KindToggleOnRisingEdge Kind = "toggle_on_rising_edge"
	KindToggleBetween      Kind = "toggle_between"
	KindCancelOnRisingEdge Kind = "cancel_on_rising_edge"
)

// Kinds lists every binding kind.
var Kinds = []Kind{
	KindOnRisingEdge,
	KindWhileTrueRepeating,
	KindWhileTrueOnce,
	KindOnFallingEdge,
	KindToggleOnRisingEdge,
	KindToggleBetween,
	KindCancelOnRisingEdge,
}

// ParseKind accepts a kind name, case-insensitively, with '-' or '_'.
func ParseKind(s string) (Kind, error) {
	norm := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, k := range Kinds {
		if k == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown binding kind %q", s)
}

// Arity is the number of commands a binding of this kind takes.
func (k Kind) Arity() int {
	if k == KindToggleBetween {
		return 2
	}
	return 1
}

// Bind dispatches to the binding method named by kind. interruptible is
// ignored by cancel_on_rising_edge.
func (t *Trigger) Bind(s Scheduler, kind Kind, interruptible bool, cmds ...command.Command) error {
	if len(cmds) != kind.Arity() {
		return fmt.Errorf("binding %s takes %d command(s), got %d", kind, kind.Arity(), len(cmds))
	}
	if err := command.CheckComparable(cmds...); err != nil {
		return fmt.Errorf("binding %s: %w", kind, err)
	}
	switch kind {
	case KindOnRisingEdge:
		t.OnRisingEdge(s, cmds[0], interruptible)
	case KindWhileTrueRepeating:
		t.WhileTrueRepeating(s, cmds[0], interruptible)
	case KindWhileTrueOnce:
		t.WhileTrueOnce(s, cmds[0], interruptible)
	case KindOnFallingEdge:
		t.OnFallingEdge(s, cmds[0], interruptible)
	case KindToggleOnRisingEdge:
		t.ToggleOnRisingEdge(s, cmds[0], interruptible)
	case KindToggleBetween:
		t.ToggleBetween(s, cmds[0], cmds[1], interruptible)
	case KindCancelOnRisingEdge:
		t.CancelOnRisingEdge(s, cmds[0])
	default:
		return fmt.Errorf("unknown binding kind %q", kind)
	}
	return nil
}
