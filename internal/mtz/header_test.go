package mtz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildMTZ lays out a minimal MTZ: 80 bytes of preamble/reflection area,
// then fixed-width header records.
func buildMTZ(records ...string) []byte {
	var buf bytes.Buffer
	pre := make([]byte, 80)
	copy(pre, "MTZ ")
	binary.LittleEndian.PutUint32(pre[4:8], 21) // header at byte 80
	pre[8] = 0x44
	pre[9] = 0x41
	buf.Write(pre)
	for _, r := range records {
		buf.WriteString(fmt.Sprintf("%-80s", r))
	}
	return buf.Bytes()
}

func writeMTZ(t *testing.T, dir, name string, records ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buildMTZ(records...), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFile(t *testing.T) {
	// 1/d^2 for 45.0 A and 1.5 A
	lo, hi := 1/(45.0*45.0), 1/(1.5*1.5)
	path := writeMTZ(t, t.TempDir(), "aimless.mtz",
		"VERS MTZ:V1.1",
		"TITLE autoPROC run",
		"NCOL    8    12345     0",
		"CELL    78.1000   78.1000   37.2000   90.0000   90.0000   90.0000",
		"SYMINF   8  8 P    96                 'P 43 21 2'  PG422",
		fmt.Sprintf("RESO %.8f %.8f", lo, hi),
		"COLUMN H                              H          0.0000         39.0000    0",
		"COLUMN IMEAN                          J         -1.0000       1000.0000    1",
		"END",
	)

	h, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if h.SpaceGroup != "P 43 21 2" {
		t.Errorf("SpaceGroup = %q", h.SpaceGroup)
	}
	if h.NormalizedPointGroup() != "422" {
		t.Errorf("NormalizedPointGroup() = %q, want 422", h.NormalizedPointGroup())
	}
	if h.NumColumns != 8 || h.NumRefl != 12345 {
		t.Errorf("NCOL parsed as %d/%d", h.NumColumns, h.NumRefl)
	}
	if math.Abs(h.ResolutionHigh()-1.5) > 1e-4 {
		t.Errorf("ResolutionHigh() = %f, want 1.5", h.ResolutionHigh())
	}
	if math.Abs(h.ResolutionLow()-45.0) > 1e-2 {
		t.Errorf("ResolutionLow() = %f, want 45", h.ResolutionLow())
	}
	if h.Cell.A != 78.1 || h.Cell.C != 37.2 {
		t.Errorf("Cell = %v", h.Cell)
	}
	if len(h.Columns) != 2 || h.Columns[1] != "IMEAN" {
		t.Errorf("Columns = %v", h.Columns)
	}
}

func TestReadNotMTZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.mtz")
	os.WriteFile(path, []byte("this is not an mtz file at all"), 0644)
	if _, err := ReadFile(path); !errors.Is(err, ErrNotMTZ) {
		t.Errorf("ReadFile() error = %v, want ErrNotMTZ", err)
	}
}

func TestReadMissingEnd(t *testing.T) {
	path := writeMTZ(t, t.TempDir(), "trunc.mtz", "VERS MTZ:V1.1", "CELL 10 10 10 90 90 90")
	if _, err := ReadFile(path); err == nil {
		t.Error("expected error for header without END")
	}
}

func TestPointGroupFallback(t *testing.T) {
	h := Header{SpaceGroup: "P 21 21 21"}
	if got := h.NormalizedPointGroup(); got != "222" {
		t.Errorf("NormalizedPointGroup() = %q, want 222", got)
	}
}
