// Package initrefine prepares the first refinement of freshly processed
// datasets: it picks the best autoprocessing result per sample, links it
// into the project, chooses a matching reference model and writes (and
// optionally submits) the initial refinement script.
package initrefine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Autoproc describes where an autoprocessing pipeline leaves its merged
// reflection files inside a sample's processing folder.
type Autoproc struct {
	Name string
	// Glob is relative to the sample folder.
	Glob string
	// LogFor returns the log belonging to an MTZ file.
	LogFor func(mtz string) string
}

var autoprocs = map[string]Autoproc{
	"autoproc": {
		Name: "autoproc",
		Glob: filepath.Join("*", "autoPROC", "results", "*_anom_truncate.mtz"),
		LogFor: func(mtz string) string {
			return strings.TrimSuffix(mtz, ".mtz") + "-unique.table1"
		},
	},
	"staraniso": {
		Name: "staraniso",
		Glob: filepath.Join("*", "autoPROC", "results", "*staraniso_alldata-unique.mtz"),
		LogFor: func(mtz string) string {
			return strings.TrimSuffix(mtz, ".mtz") + ".table1"
		},
	},
	"xia2-dials": {
		Name: "xia2-dials",
		Glob: filepath.Join("*", "xia2DIALS", "DataFiles", "*free.mtz"),
		LogFor: func(mtz string) string {
			return filepath.Join(filepath.Dir(filepath.Dir(mtz)), "xia2.txt")
		},
	},
}

// LookupAutoproc returns the pipeline called name.
func LookupAutoproc(name string) (Autoproc, error) {
	a, ok := autoprocs[strings.ToLower(name)]
	if !ok {
		return Autoproc{}, fmt.Errorf("unknown autoprocessing pipeline %q (want %s)", name, strings.Join(AutoprocNames(), ", "))
	}
	return a, nil
}

// AutoprocNames lists the supported autoprocessing pipelines.
func AutoprocNames() []string {
	names := make([]string, 0, len(autoprocs))
	for n := range autoprocs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Refiner is an initial refinement pipeline.
type Refiner string

const (
	Dimple    Refiner = "dimple"
	Pipedream Refiner = "pipedream"
)

// ParseRefiner validates name.
func ParseRefiner(name string) (Refiner, error) {
	switch Refiner(strings.ToLower(name)) {
	case Dimple:
		return Dimple, nil
	case Pipedream:
		return Pipedream, nil
	}
	return "", fmt.Errorf("unknown refinement pipeline %q (want dimple or pipedream)", name)
}

// Command returns the refinement command run in the sample folder.
func (r Refiner) Command(pdb string) string {
	if r == Pipedream {
		return fmt.Sprintf("pipedream -imtz process.mtz -xyzin %s -d pipedream -nolmr -nofreeref", pdb)
	}
	return fmt.Sprintf("dimple process.mtz %s dimple", pdb)
}
