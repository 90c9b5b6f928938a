package cli

import (
	"bytes"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "smellpipe version") {
		t.Errorf("expected version output, got: %q", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"run", "plan", "status", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestRunRejectsMissingConfig(t *testing.T) {
	configPath = "/nonexistent/smellpipe.yaml"
	defer func() { configPath = "" }()

	_, err := executeCommand("run")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestPlanRequiresRepoArg(t *testing.T) {
	_, err := executeCommand("plan")
	if err == nil {
		t.Fatal("expected error when repo dir argument is missing")
	}
}
