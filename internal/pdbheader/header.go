// Package pdbheader reads refinement statistics out of the header of a
// fixed-column PDB model file.
//
// Every field is taken from the first line starting with its marker. A
// missing line, or a line too short for the expected column or token,
// yields an empty string; there is no schema validation beyond that.
package pdbheader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/xtalbatch/xtalbatch/internal/crystal"
)

// Field describes where one value lives: the line marker, and either a
// whitespace token index or a byte column range [Start, End).
type Field struct {
	Marker string
	Token  int
	Start  int
	End    int
}

// Extract pulls the field value out of a line that starts with Marker.
func (f Field) Extract(line string) string {
	if f.End > 0 {
		if len(line) <= f.Start {
			return ""
		}
		end := f.End
		if end > len(line) {
			end = len(line)
		}
		return strings.TrimSpace(line[f.Start:end])
	}
	tokens := strings.Fields(line)
	if f.Token < 0 || f.Token >= len(tokens) {
		return ""
	}
	return tokens[f.Token]
}

// Markers as written by refmac into REMARK 3.
var (
	SpaceGroupField = Field{Marker: "CRYST1", Start: 55, End: 66}
	ResolutionField = Field{Marker: "REMARK   3   RESOLUTION RANGE HIGH (ANGSTROMS) :", Token: 7}
	RWorkField      = Field{Marker: "REMARK   3   R VALUE     (WORKING + TEST SET) :", Token: 9}
	RFreeField      = Field{Marker: "REMARK   3   FREE R VALUE                     :", Token: 6}
	RmsdBondsField  = Field{Marker: "REMARK   3   BOND LENGTHS REFINED ATOMS        (A):", Token: 9}
	RmsdAnglesField = Field{Marker: "REMARK   3   BOND ANGLES REFINED ATOMS   (DEGREES):", Token: 9}
)

// Header is the set of statistics shown next to a dataset.
type Header struct {
	SpaceGroup     string
	ResolutionHigh string
	RWork          string
	RFree          string
	RmsdBonds      string
	RmsdAngles     string
	Cell           crystal.UnitCell
}

// PointGroup derives the point group from the space group symbol.
func (h Header) PointGroup() string {
	return crystal.PointGroup(h.SpaceGroup)
}

// Scan reads r to the end and fills a Header, first match per field.
func Scan(r io.Reader) (Header, error) {
	var h Header
	targets := []struct {
		field Field
		dst   *string
	}{
		{SpaceGroupField, &h.SpaceGroup},
		{ResolutionField, &h.ResolutionHigh},
		{RWorkField, &h.RWork},
		{RFreeField, &h.RFree},
		{RmsdBondsField, &h.RmsdBonds},
		{RmsdAnglesField, &h.RmsdAngles},
	}
	seen := make([]bool, len(targets))
	cellSeen := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		for i, t := range targets {
			if !seen[i] && strings.HasPrefix(line, t.field.Marker) {
				*t.dst = t.field.Extract(line)
				seen[i] = true
			}
		}
		if !cellSeen && strings.HasPrefix(line, "CRYST1") {
			h.Cell = parseCryst1(line)
			cellSeen = true
		}
		// Coordinates follow the header; nothing more to find.
		if strings.HasPrefix(line, "ATOM  ") || strings.HasPrefix(line, "HETATM") {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return h, fmt.Errorf("error reading model header: %w", err)
	}
	return h, nil
}

// Read opens path and scans its header. Files ending in ".gz" or ".zst"
// are decompressed on the fly.
func Read(path string) (Header, error) {
	rc, err := Open(path)
	if err != nil {
		return Header{}, err
	}
	defer rc.Close()
	return Scan(rc)
}

// Lookup returns the value of a single field from the model at path, or ""
// if the file cannot be read or holds no such line.
func Lookup(path string, f Field) string {
	rc, err := Open(path)
	if err != nil {
		return ""
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, f.Marker) {
			return f.Extract(line)
		}
	}
	return ""
}

// Open opens a model file, transparently decompressing it by extension.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, file}}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		rc := dec.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, file}}, nil
	}
	return file, nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func parseCryst1(line string) crystal.UnitCell {
	col := func(start, end int) float64 {
		if len(line) < start {
			return 0
		}
		if end > len(line) {
			end = len(line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line[start:end]), 64)
		if err != nil {
			return 0
		}
		return v
	}
	return crystal.UnitCell{
		A:     col(6, 15),
		B:     col(15, 24),
		C:     col(24, 33),
		Alpha: col(33, 40),
		Beta:  col(40, 47),
		Gamma: col(47, 54),
	}
}
