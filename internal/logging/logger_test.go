package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerSetOutput(t *testing.T) {
	l := NewDefaultCLILogger()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Info().Str("sample", "x001").Msg("checking folder")

	out := buf.String()
	if !strings.Contains(out, "checking folder") {
		t.Errorf("output %q missing message", out)
	}
	if !strings.Contains(out, "x001") {
		t.Errorf("output %q missing field value", out)
	}
	if l.Output() != &buf {
		t.Error("Output() did not return the writer passed to SetOutput")
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) == nil {
		t.Fatal("OrDefault(nil) returned nil")
	}
	nop := NewNopLogger()
	if OrDefault(nop) != nop {
		t.Error("OrDefault should return the logger it was given")
	}
}
