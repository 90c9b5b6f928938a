package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// mockCmd records calls and returns configured results.
type mockCmd struct {
	calls   []mockCall
	results []mockResult
	callIdx int
}

type mockCall struct {
	Dir  string
	Name string
	Args []string
}

type mockResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (m *mockCmd) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	m.calls = append(m.calls, mockCall{Dir: dir, Name: name, Args: args})
	if m.callIdx >= len(m.results) {
		return "", "", 0, nil
	}
	r := m.results[m.callIdx]
	m.callIdx++
	return r.Stdout, r.Stderr, r.ExitCode, r.Err
}

func testConfig() Config {
	return Config{
		JavaBin:           "java",
		DesigniteJar:      "/opt/DesigniteJava.jar",
		PythonBin:         "python3",
		CSDetectorPath:    "/opt/csDetector/devNetwork.py",
		SentiStrengthPath: "/opt/SentiStrength",
		DesigniteTimeout:  time.Minute,
		CSDetectorTimeout: time.Minute,
	}
}

func TestRunDesigniteCross(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{ExitCode: 0}}}
	r := NewRunner(mock, testConfig())
	outDir := filepath.Join(t.TempDir(), "out")

	outcome, err := r.Run(context.Background(), KindDesigniteCross, Request{
		TreeDir:   "/work/commons-lang",
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.OK {
		t.Error("expected OK outcome")
	}

	if len(mock.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(mock.calls))
	}
	call := mock.calls[0]
	if call.Name != "java" {
		t.Errorf("name = %q, want java", call.Name)
	}
	want := []string{"-jar", "/opt/DesigniteJava.jar", "-i", "/work/commons-lang", "-o", outDir}
	if len(call.Args) != len(want) {
		t.Fatalf("args = %v, want %v", call.Args, want)
	}
	for i := range want {
		if call.Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, call.Args[i], want[i])
		}
	}

	// Output directory was created before the invocation.
	if _, err := os.Stat(outDir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestRunCSDetector(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{ExitCode: 0}}}
	r := NewRunner(mock, testConfig())

	_, err := r.Run(context.Background(), KindCSDetector, Request{
		OutputDir: filepath.Join(t.TempDir(), "out"),
		RemoteURL: "https://github.com/apache/commons-lang",
		Token:     "ghp_test",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	call := mock.calls[0]
	if call.Name != "python3" {
		t.Errorf("name = %q, want python3", call.Name)
	}
	if call.Args[0] != "/opt/csDetector/devNetwork.py" {
		t.Errorf("script = %q", call.Args[0])
	}
	argmap := map[string]string{}
	for i := 1; i+1 < len(call.Args); i += 2 {
		argmap[call.Args[i]] = call.Args[i+1]
	}
	if argmap["-r"] != "https://github.com/apache/commons-lang" {
		t.Errorf("-r = %q", argmap["-r"])
	}
	if argmap["-p"] != "ghp_test" {
		t.Errorf("-p = %q", argmap["-p"])
	}
	if argmap["-s"] != "/opt/SentiStrength" {
		t.Errorf("-s = %q", argmap["-s"])
	}
}

func TestRunNonZeroExit(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{ExitCode: 3, Stderr: "OutOfMemoryError\njava heap space"}}}
	r := NewRunner(mock, testConfig())

	outcome, err := r.Run(context.Background(), KindDesigniteCross, Request{
		TreeDir:   "/work/x",
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.OK {
		t.Error("expected failed outcome")
	}
	if outcome.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", outcome.ExitCode)
	}
	if outcome.Detail == "" {
		t.Error("expected failure detail")
	}
}

func TestRunInvocationError(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Err: errors.New("executable not found")}}}
	r := NewRunner(mock, testConfig())

	_, err := r.Run(context.Background(), KindDesigniteCross, Request{
		TreeDir:   "/work/x",
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	if err == nil {
		t.Fatal("expected error for failed invocation")
	}
}

func TestRunUnknownKind(t *testing.T) {
	r := NewRunner(&mockCmd{}, testConfig())

	_, err := r.Run(context.Background(), Kind("pmd"), Request{
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
