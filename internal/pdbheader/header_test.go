package pdbheader

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func refmacHeader() string {
	lines := []string{
		"REMARK   3 REFINEMENT.",
		"REMARK   3   PROGRAM     : REFMAC 5.8.0267",
		"REMARK   3   RESOLUTION RANGE HIGH (ANGSTROMS) :   1.52",
		"REMARK   3   RESOLUTION RANGE LOW  (ANGSTROMS) :  45.10",
		"REMARK   3   R VALUE     (WORKING + TEST SET) : 0.18234",
		"REMARK   3   R VALUE            (WORKING SET) : 0.18101",
		"REMARK   3   FREE R VALUE                     : 0.21456",
		"REMARK   3   BOND LENGTHS REFINED ATOMS        (A):  2474 ; 0.012 ; 0.019",
		"REMARK   3   BOND ANGLES REFINED ATOMS   (DEGREES):  3361 ; 1.637 ; 1.958",
		// second occurrence must not win
		"REMARK   3   FREE R VALUE                     : 0.99999",
		fmt.Sprintf("CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f %-11s%4d", 51.2, 62.4, 73.6, 90.0, 90.0, 90.0, "P 21 21 21", 4),
		"ATOM      1  N   MET A   1      11.104  13.207   2.100  1.00 20.00           N",
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestScan(t *testing.T) {
	h, err := Scan(strings.NewReader(refmacHeader()))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	checks := []struct {
		name, got, want string
	}{
		{"SpaceGroup", h.SpaceGroup, "P 21 21 21"},
		{"ResolutionHigh", h.ResolutionHigh, "1.52"},
		{"RWork", h.RWork, "0.18234"},
		{"RFree", h.RFree, "0.21456"},
		{"RmsdBonds", h.RmsdBonds, "0.012"},
		{"RmsdAngles", h.RmsdAngles, "1.637"},
		{"PointGroup", h.PointGroup(), "222"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}

	wantVol := 51.2 * 62.4 * 73.6
	if math.Abs(h.Cell.Volume()-wantVol) > 1e-3 {
		t.Errorf("cell volume = %f, want %f", h.Cell.Volume(), wantVol)
	}
}

func TestScanMissingMarkersYieldEmpty(t *testing.T) {
	h, err := Scan(strings.NewReader("HEADER    TEST\nATOM      1  N   MET A   1\n"))
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if h.SpaceGroup != "" || h.RFree != "" || h.RWork != "" || h.ResolutionHigh != "" {
		t.Errorf("expected empty header, got %+v", h)
	}
	if !h.Cell.IsZero() {
		t.Errorf("expected zero cell, got %v", h.Cell)
	}
}

func TestFieldExtractShortLines(t *testing.T) {
	if got := RFreeField.Extract("REMARK   3   FREE R VALUE                     :"); got != "" {
		t.Errorf("token past end = %q, want empty", got)
	}
	if got := SpaceGroupField.Extract("CRYST1   51.200"); got != "" {
		t.Errorf("column past end = %q, want empty", got)
	}
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refine.pdb")
	if err := os.WriteFile(path, []byte(refmacHeader()), 0644); err != nil {
		t.Fatal(err)
	}

	if got := Lookup(path, RWorkField); got != "0.18234" {
		t.Errorf("Lookup(RWork) = %q", got)
	}
	if got := Lookup(filepath.Join(dir, "absent.pdb"), RWorkField); got != "" {
		t.Errorf("Lookup on missing file = %q, want empty", got)
	}

	noMarker := filepath.Join(dir, "plain.pdb")
	os.WriteFile(noMarker, []byte("HEADER    NOTHING HERE\n"), 0644)
	if got := Lookup(noMarker, ResolutionField); got != "" {
		t.Errorf("Lookup without marker = %q, want empty", got)
	}
}

func TestReadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refine.pdb.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	zw.Write([]byte(refmacHeader()))
	zw.Close()
	f.Close()

	h, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if h.ResolutionHigh != "1.52" {
		t.Errorf("ResolutionHigh = %q, want 1.52", h.ResolutionHigh)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.pdb")); err == nil {
		t.Error("Read() of missing file should return an error")
	}
}
