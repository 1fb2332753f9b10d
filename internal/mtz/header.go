// Package mtz reads the text header of an MTZ reflection file: cell,
// space group, point group and resolution limits. Reflection data is never
// touched.
package mtz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/crystal"
)

const recordLen = 80

// ErrNotMTZ is returned when the file does not start with the MTZ magic.
var ErrNotMTZ = errors.New("not an MTZ file")

// Header is the subset of MTZ header records the pipelines use.
type Header struct {
	Title      string
	Cell       crystal.UnitCell
	SpaceGroup string
	PointGroup string
	NumColumns int
	NumRefl    int
	// Inverse squared resolution limits from the RESO record.
	ResoMin float64
	ResoMax float64
	Columns []string
}

// ResolutionHigh returns the high resolution limit in Angstrom, or 0 when
// the RESO record is missing.
func (h Header) ResolutionHigh() float64 {
	s := math.Max(h.ResoMin, h.ResoMax)
	if s <= 0 {
		return 0
	}
	return 1 / math.Sqrt(s)
}

// ResolutionLow returns the low resolution limit in Angstrom.
func (h Header) ResolutionLow() float64 {
	s := math.Min(h.ResoMin, h.ResoMax)
	if s <= 0 {
		return 0
	}
	return 1 / math.Sqrt(s)
}

// ReadFile reads the header of the MTZ file at path.
func ReadFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open MTZ file: %w", err)
	}
	defer f.Close()

	h, err := Read(f)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Read parses the header from r.
func Read(r io.ReadSeeker) (Header, error) {
	var pre [12]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return Header{}, fmt.Errorf("failed to read MTZ preamble: %w", err)
	}
	if string(pre[0:4]) != "MTZ " {
		return Header{}, ErrNotMTZ
	}

	// The machine stamp's high nibble tells the integer byte order.
	var order binary.ByteOrder = binary.LittleEndian
	if pre[8]>>4 == 1 {
		order = binary.BigEndian
	}
	word := int64(int32(order.Uint32(pre[4:8])))
	if word <= 0 {
		return Header{}, fmt.Errorf("invalid MTZ header location %d", word)
	}

	if _, err := r.Seek((word-1)*4, io.SeekStart); err != nil {
		return Header{}, fmt.Errorf("failed to seek to MTZ header: %w", err)
	}
	return parseRecords(r)
}

func parseRecords(r io.Reader) (Header, error) {
	var h Header
	buf := make([]byte, recordLen)
	for {
		n, err := io.ReadFull(r, buf)
		if n == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return h, fmt.Errorf("MTZ header has no END record")
			}
			return h, fmt.Errorf("failed to read MTZ header: %w", err)
		}
		rec := string(bytes.TrimRight(buf[:n], "\x00 "))
		key := rec
		if len(key) > 4 {
			key = key[:4]
		}
		key = strings.TrimSpace(key)

		switch key {
		case "END":
			if strings.HasPrefix(rec, "END") {
				return h, nil
			}
		case "TITL":
			h.Title = strings.TrimSpace(strings.TrimPrefix(rec, "TITLE"))
		case "NCOL":
			f := strings.Fields(rec)
			if len(f) >= 3 {
				h.NumColumns, _ = strconv.Atoi(f[1])
				h.NumRefl, _ = strconv.Atoi(f[2])
			}
		case "CELL":
			if vals := floats(strings.Fields(rec)[1:]); len(vals) >= 6 {
				h.Cell = crystal.UnitCell{A: vals[0], B: vals[1], C: vals[2], Alpha: vals[3], Beta: vals[4], Gamma: vals[5]}
			}
		case "SYMI":
			h.SpaceGroup, h.PointGroup = parseSyminf(rec)
		case "RESO":
			if vals := floats(strings.Fields(rec)[1:]); len(vals) >= 2 {
				h.ResoMin, h.ResoMax = vals[0], vals[1]
			}
		case "COLU":
			if f := strings.Fields(rec); len(f) >= 2 {
				h.Columns = append(h.Columns, f[1])
			}
		}
		if err != nil {
			return h, fmt.Errorf("MTZ header truncated: %w", err)
		}
	}
}

// parseSyminf handles
//
//	SYMINF   4  4 P    19                 'P 21 21 21'  PG222
func parseSyminf(rec string) (spaceGroup, pointGroup string) {
	open := strings.IndexByte(rec, '\'')
	if open < 0 {
		return "", ""
	}
	rest := rec[open+1:]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return strings.TrimSpace(rest), ""
	}
	spaceGroup = strings.TrimSpace(rest[:end])
	tail := strings.Fields(rest[end+1:])
	if len(tail) > 0 {
		pointGroup = tail[0]
	}
	return spaceGroup, pointGroup
}

func floats(fields []string) []float64 {
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			break
		}
		out = append(out, v)
	}
	return out
}

// NormalizedPointGroup returns the point group without the "PG" prefix,
// falling back to deriving it from the space group.
func (h Header) NormalizedPointGroup() string {
	if h.PointGroup != "" {
		return crystal.NormalizePointGroup(h.PointGroup)
	}
	return crystal.PointGroup(h.SpaceGroup)
}
