package cmd

import (
	"context"
	"testing"
)

func TestRunVersionAndHelp(t *testing.T) {
	for _, args := range [][]string{{"--version"}, {"--help"}} {
		if err := run(context.Background(), args); err != nil {
			t.Fatalf("run(%v) returned %v", args, err)
		}
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--no-such-flag"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestRunReportsMissingRepository(t *testing.T) {
	args := []string{"--config", "", "--state-dir", t.TempDir(), t.TempDir()}
	if err := run(context.Background(), args); err == nil {
		t.Fatal("expected an error for a directory without a repository")
	}
}
