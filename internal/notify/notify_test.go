package notify

import (
	"context"
	"strings"
	"testing"

	slackapi "github.com/slack-go/slack"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want []string
	}{
		{
			name: "full notification",
			n: Notification{
				Recipient: "alice",
				TaskRef:   "task-abc12",
				Type:      "task_completed",
				Title:     "Task completed",
				Message:   "Install rack",
				Priority:  "normal",
			},
			want: []string{"Task completed", "Install rack", "task-abc12", "@alice"},
		},
		{
			name: "urgent prefix",
			n:    Notification{Title: "Sync failed", Priority: "urgent"},
			want: []string{"[URGENT]", "Sync failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.n)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Format() = %q, want to contain %q", got, w)
				}
			}
		})
	}
}

func TestTemplateNotification(t *testing.T) {
	n := Notification{Title: "Done", Recipient: "bob", TaskRef: "task-00001"}
	got := templateNotification("notify-send '{{.Title}}' '{{.Recipient}} {{.TaskRef}}'", n)
	want := "notify-send 'Done' 'bob task-00001'"
	if got != want {
		t.Errorf("templateNotification() = %q, want %q", got, want)
	}
}

// recordingSink captures notifications for assertions.
type recordingSink struct {
	got []Notification
}

func (r *recordingSink) Send(_ context.Context, n Notification) {
	r.got = append(r.got, n)
}

func TestMulti_FansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := Multi{a, b}

	m.Send(context.Background(), Notification{Title: "hello"})

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("fan-out counts = %d, %d; want 1, 1", len(a.got), len(b.got))
	}
}

type fakeSlackClient struct {
	channel string
	texts   []string
	err     error
}

func (f *fakeSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	f.channel = channelID
	return "", "", f.err
}

func TestSlackSink_PostsToChannel(t *testing.T) {
	fake := &fakeSlackClient{}
	sink := &SlackSink{client: fake, channelID: "C123"}

	sink.Send(context.Background(), Notification{Title: "hi"})

	if fake.channel != "C123" {
		t.Errorf("posted to %q, want C123", fake.channel)
	}
}
