package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

func TestAssembleToFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "add.asm", "PUSH 2 PUSH 3 ADD HALT\n")
	out := filepath.Join(dir, "add.bc")

	var stdout, stderr bytes.Buffer
	if code := run([]string{in, out}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := []byte{0x01, 2, 0, 0, 0, 0x01, 3, 0, 0, 0, 0x04, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("output = % X, want % X", got, want)
	}
	if stdout.Len() != 0 {
		t.Errorf("unexpected stdout without -v: %q", stdout.String())
	}
}

func TestAssembleVerbose(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "halt.asm", "HALT")
	out := filepath.Join(dir, "halt.bc")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-v", in, out}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Wrote 1 bytes") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestUnknownMnemonicWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "bad.asm", "PUSH 1\nJUMP 0\n")
	out := filepath.Join(dir, "bad.bc")

	var stdout, stderr bytes.Buffer
	if code := run([]string{in, out}, &stdout, &stderr); code == 0 {
		t.Fatal("exit 0, want failure")
	}
	if !strings.Contains(stderr.String(), `"JUMP"`) {
		t.Errorf("stderr does not name the token: %q", stderr.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output file exists after failed assembly (stat err %v)", err)
	}
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"one arg", []string{"in.asm"}},
		{"missing input", []string{filepath.Join(dir, "nope.asm"), filepath.Join(dir, "out.bc")}},
		{"bad flag", []string{"-frobnicate", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit %d, want 1", code)
			}
			if stderr.Len() == 0 {
				t.Error("no diagnostic on stderr")
			}
		})
	}
}
