// Package notify delivers workflow notifications to configured sinks.
// Delivery is best-effort and fire-and-forget: errors are logged, never
// returned to the workflow transaction that produced the event.
package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Notification is a structured workflow event for a recipient.
type Notification struct {
	Recipient string // username of the target user
	TaskRef   string // task ID, if task-scoped
	FlowRef   string // flow name, if flow-scoped
	Type      string // e.g. "task_completed", "case_approved"
	Title     string
	Message   string
	Priority  string // "normal" or "urgent"
}

// Sink accepts notifications. Implementations must not block on slow
// transports beyond their own timeouts and must never panic on delivery
// failure.
type Sink interface {
	Send(ctx context.Context, n Notification)
}

// Multi fans a notification out to several sinks.
type Multi []Sink

// Send delivers to every sink in order.
func (m Multi) Send(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Send(ctx, n)
	}
}

// Discard is a no-op sink for callers that don't wire notifications.
type Discard struct{}

// Send drops the notification.
func (Discard) Send(context.Context, Notification) {}

// CommandSink runs a shell command template per notification, for desktop
// notifiers and similar local hooks.
type CommandSink struct {
	Command string // e.g. "notify-send 'caseflow' '{{.Title}}'"
}

// Send executes the command template. Errors are logged, not returned.
func (c *CommandSink) Send(ctx context.Context, n Notification) {
	if c.Command == "" {
		return
	}
	cmdStr := templateNotification(c.Command, n)
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("notify: command failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
}

// templateNotification replaces placeholders in the command template with
// notification values.
func templateNotification(command string, n Notification) string {
	r := strings.NewReplacer(
		"{{.Recipient}}", n.Recipient,
		"{{.TaskRef}}", n.TaskRef,
		"{{.FlowRef}}", n.FlowRef,
		"{{.Type}}", n.Type,
		"{{.Title}}", n.Title,
		"{{.Message}}", n.Message,
		"{{.Priority}}", n.Priority,
	)
	return r.Replace(command)
}

// Format renders a notification as a single chat line.
func Format(n Notification) string {
	var b strings.Builder
	if n.Priority == "urgent" {
		b.WriteString("[URGENT] ")
	}
	b.WriteString(n.Title)
	if n.Message != "" {
		fmt.Fprintf(&b, ": %s", n.Message)
	}
	if n.TaskRef != "" {
		fmt.Fprintf(&b, " (%s)", n.TaskRef)
	}
	if n.Recipient != "" {
		fmt.Fprintf(&b, " → @%s", n.Recipient)
	}
	return b.String()
}
