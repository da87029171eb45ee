// Package notify posts operation events (backups, restores, failed engine
// actions) to chat platforms.
package notify

import "context"

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeveritySuccess = "success"
)

// Event is one operation outcome formatted for display in chat.
type Event struct {
	Title    string  // headline (e.g. "Backup completed: postgres")
	Body     string  // detail text
	Severity string  // info, warning, error, success
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
}

// Notifier delivers events to a platform. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Post(ctx context.Context, ev Event) error
}

// Nop is a Notifier that discards every event.
type Nop struct{}

// Post implements Notifier.
func (Nop) Post(ctx context.Context, ev Event) error { return nil }

// Multi fans an event out to several notifiers, best-effort. The first
// error is returned after all notifiers have been attempted.
type Multi []Notifier

// Post implements Notifier.
func (m Multi) Post(ctx context.Context, ev Event) error {
	var first error
	for _, n := range m {
		if err := n.Post(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// severityColor maps a severity to a sidebar color hint.
func severityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return "#36a64f"
	case SeverityWarning:
		return "#daa038"
	case SeverityError:
		return "#cc0000"
	default:
		return "#439fe0"
	}
}
