//go:build integration

package test_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("DREAMY_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "DREAMY_TEST_BIN not set; build dreamy and point DREAMY_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// runDreamy drives a -test session and returns its stdout and log dir.
func runDreamy(t *testing.T, env []string, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-test", "-logpath", logDir}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), env...)

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("dreamy exited with error: %v\noutput: %s", err, b)
	}
	out = string(b)
	if strings.Contains(out, "TIMEOUT") {
		t.Fatalf("session timed out\noutput: %s", out)
	}
	return out, logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireGeminiKey(t *testing.T) {
	t.Helper()
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
}

var fast = []string{"DREAMY_TEST_FAST=1"}

func TestFakeJourney(t *testing.T) {
	env := append([]string{"DREAMY_FAKE_AI=1"}, fast...)
	out, logDir := runDreamy(t, env, cmds(
		"TYPE I was walking through a library with no walls",
		"SUBMIT", "WAIT view interpretation", "WAIT typed",
		"KEY l", "WAIT playback stopped",
		"KEY d", "WAIT view input", "QUIT",
	))
	for _, want := range []string{"view loading", "ready", "view interpretation", "view input", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	journal := readLog(t, logDir, "dream_log.txt")
	if !strings.Contains(journal, "library with no walls") {
		t.Errorf("journal missing dream: %q", journal)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "interpretation", "state=playing", "state=stopped", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
}

func TestFakeFailureReturnsToInput(t *testing.T) {
	env := append([]string{"DREAMY_FAKE_AI=fail"}, fast...)
	out, logDir := runDreamy(t, env, cmds(
		"TYPE a door that opens onto the sea",
		"SUBMIT", "WAIT view loading", "WAIT view input", "QUIT",
	))
	if strings.Contains(out, "view interpretation") {
		t.Error("failed attempt reached the interpretation view")
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "interpret_failed") {
		t.Error("expected interpret_failed in diagnostics")
	}
	if journal := readLog(t, logDir, "dream_log.txt"); strings.TrimSpace(journal) != "" {
		t.Errorf("failed attempt written to journal: %q", journal)
	}
}

func TestEmptySubmitStays(t *testing.T) {
	env := append([]string{"DREAMY_FAKE_AI=1"}, fast...)
	out, _ := runDreamy(t, env, cmds("TYPE    ", "SUBMIT", "SLEEP 200", "QUIT"))
	if strings.Contains(out, "view loading") {
		t.Error("blank dream was submitted")
	}
}

func TestFakeDictation(t *testing.T) {
	env := append([]string{"DREAMY_FAKE_AI=1", "DREAMY_FAKE_DICTATION=a red|a red balloon"}, fast...)
	_, logDir := runDreamy(t, env, cmds(
		"DICTATE", "SLEEP 300", "SUBMIT", "WAIT view interpretation", "QUIT",
	))
	journal := readLog(t, logDir, "dream_log.txt")
	if !strings.Contains(journal, "a red balloon") {
		t.Errorf("dictated dream not interpreted: %q", journal)
	}
}

func TestGeminiJourney(t *testing.T) {
	requireGeminiKey(t)
	_, logDir := runDreamy(t, fast, cmds(
		"TYPE I was flying over a city made of glass",
		"SUBMIT", "WAIT view interpretation", "QUIT",
	), "-provider", "gemini")
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"interpretation", "provider=gemini", "http"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
}

func TestGeminiConnReuse(t *testing.T) {
	requireGeminiKey(t)
	_, logDir := runDreamy(t, fast, cmds(
		"TYPE a staircase that keeps going down",
		"SUBMIT", "WAIT view interpretation", "KEY d", "WAIT view input",
		"TYPE the same staircase, now going up",
		"SUBMIT", "WAIT view interpretation", "QUIT",
	), "-provider", "gemini")
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "conn=reused") {
		t.Error("expected conn=reused in diagnostics")
	}
}
