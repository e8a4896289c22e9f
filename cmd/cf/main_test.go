package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/caseflow-dev/caseflow/internal/config"
	"github.com/caseflow-dev/caseflow/internal/notify"
)

func runHelp(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--help"))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v --help failed: %v", args, err)
	}
	return buf.String()
}

func TestRootCmd_Subcommands(t *testing.T) {
	out := runHelp(t)
	for _, sub := range []string{"db", "task", "dep", "case", "template", "sync", "serve", "crm"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected root help to list %q, got: %s", sub, out)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), "cf ") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestTaskCmd_Help(t *testing.T) {
	out := runHelp(t, "task")
	for _, sub := range []string{"create", "list", "show", "status", "complete", "delegate"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected task help to list %q, got: %s", sub, out)
		}
	}
}

func TestCaseCmd_Help(t *testing.T) {
	out := runHelp(t, "case")
	for _, sub := range []string{"handover", "approve", "reject", "closure"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected case help to list %q, got: %s", sub, out)
		}
	}

	out = runHelp(t, "case", "closure")
	for _, sub := range []string{"request", "approve", "reject"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected closure help to list %q, got: %s", sub, out)
		}
	}
}

func TestDepCmd_Help(t *testing.T) {
	out := runHelp(t, "dep")
	for _, sub := range []string{"add", "rm", "ls"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected dep help to list %q, got: %s", sub, out)
		}
	}
}

func TestSinkFromConfig(t *testing.T) {
	cfg := &config.Config{}
	if _, ok := sinkFromConfig(cfg).(notify.Discard); !ok {
		t.Error("empty notify config should yield a discard sink")
	}

	cfg.Notify.Command = "true"
	sink := sinkFromConfig(cfg)
	multi, ok := sink.(notify.Multi)
	if !ok {
		t.Fatalf("sink = %T, want notify.Multi", sink)
	}
	if len(multi) != 1 {
		t.Errorf("len(multi) = %d, want 1", len(multi))
	}
}
