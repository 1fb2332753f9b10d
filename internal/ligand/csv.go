// Package ligand checks ligand CSV files (sample id, ligand id, SMILES)
// and generates restraint dictionaries for every row.
package ligand

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xtalbatch/xtalbatch/internal/util/sanitize"
	"github.com/xtalbatch/xtalbatch/internal/validation"
)

// Row is one ligand to generate restraints for. Spaces are removed from
// every field.
type Row struct {
	Line     int
	SampleID string
	LigandID string
	Smiles   string
}

// Report is the outcome of reading a ligand CSV. Errors are rows that
// cannot be used; warnings are rows that were cleaned up.
type Report struct {
	Rows     []Row
	Lines    int
	Errors   []string
	Warnings []string
}

// Passed reports whether every row was usable.
func (r Report) Passed() bool {
	return len(r.Errors) == 0
}

// CheckCSV verifies that path exists and looks like a text file.
func CheckCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("csv file %s does not exist", path)
		}
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read csv file: %w", err)
	}
	if !utf8.Valid(line) || bytes.IndexByte(line, 0) >= 0 {
		return fmt.Errorf("%s does not look like a csv file", path)
	}
	return nil
}

// SniffDelimiter picks ',' or ';' from the first line, whichever occurs
// more often. ',' wins ties.
func SniffDelimiter(line string) rune {
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// ReadCSV parses path into rows. Rows with fewer than three fields are
// reported as errors and skipped; fields with spaces are reported as
// warnings and cleaned.
func ReadCSV(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read csv file: %w", err)
	}
	first := string(data)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = SniffDelimiter(first)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rep Report
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		rep.Lines++
		line, _ := r.FieldPos(0)

		if len(rec) < 3 {
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: missing value in row %v", line, rec))
			continue
		}
		row := Row{Line: line}
		for i, dst := range []*string{&row.SampleID, &row.LigandID, &row.Smiles} {
			v := sanitize.Field(rec[i])
			if strings.Contains(v, " ") {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("line %d: space in %s field %q will be removed", line, fieldNames[i], v))
				v = strings.ReplaceAll(v, " ", "")
			}
			*dst = v
		}
		if row.SampleID == "" || row.LigandID == "" || row.Smiles == "" {
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: empty value in row %v", line, rec))
			continue
		}
		if err := errors.Join(
			validation.ValidateName(fieldNames[0], row.SampleID),
			validation.ValidateName(fieldNames[1], row.LigandID),
		); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}

var fieldNames = [...]string{"sampleID", "ligandID", "smiles"}
