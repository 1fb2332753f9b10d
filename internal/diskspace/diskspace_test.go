package diskspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "fitted-v0001.pdb")

	if err := CheckAvailableSpace(target, 1024, 2); err != nil {
		t.Errorf("1 KB check failed: %v", err)
	}

	available := GetAvailableSpace(target)
	if available == 0 {
		t.Skip("free space unknown on this filesystem")
	}
	err := CheckAvailableSpace(target, available, 2)
	if !IsInsufficientSpaceError(err) {
		t.Errorf("twice the free space: got %v, want InsufficientSpaceError", err)
	}
}

func TestCheckAvailableSpaceUnknownDirPasses(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "deeper", "file.pdb")
	if err := CheckAvailableSpace(target, 1<<62, 1); err != nil {
		t.Errorf("unstatable directory should pass, got %v", err)
	}
	if GetAvailableSpace(target) != 0 {
		t.Error("GetAvailableSpace on a missing directory should be 0")
	}
}

func TestInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Path: "/p/x.pdb", RequiredBytes: 3 << 20, AvailableBytes: 1 << 20}
	if msg := err.Error(); !strings.Contains(msg, "need 3.00 MB") || !strings.Contains(msg, "have 1.00 MB") {
		t.Errorf("message = %q", msg)
	}
	if !IsInsufficientSpaceError(fmt.Errorf("save: %w", err)) {
		t.Error("wrapped error not recognised")
	}
	if IsInsufficientSpaceError(fmt.Errorf("other")) {
		t.Error("unrelated error recognised")
	}
}
