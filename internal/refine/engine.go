// Package refine renders refinement job scripts for a dataset and submits
// them to the batch queue.
package refine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/project"
)

// ErrUnknownEngine is returned for an engine name that is not supported.
var ErrUnknownEngine = errors.New("unknown refinement engine")

// Engine names a refinement program.
type Engine string

const (
	Refmac Engine = "refmac"
	Buster Engine = "buster"
)

// ParseEngine maps a name, case-insensitively, to an Engine.
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case Refmac:
		return Refmac, nil
	case Buster:
		return Buster, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// SelectEngine picks the engine for a dataset: the record's own
// refinement program if set, else buster when the sentinel file exists in
// the sample directory, else the configured default.
func SelectEngine(cfg *config.Config, sampleDir string, d *project.Dataset) (Engine, error) {
	if d.RefinementProgram != "" {
		return ParseEngine(d.RefinementProgram)
	}
	if cfg.SentinelFile != "" {
		if _, err := os.Stat(filepath.Join(sampleDir, cfg.SentinelFile)); err == nil {
			return Buster, nil
		}
	}
	return ParseEngine(cfg.RefineEngine)
}

// Module returns the environment module line the engine needs.
func (e Engine) Module(cfg *config.Config) string {
	if e == Buster {
		return cfg.BusterModule
	}
	return cfg.CCP4Module
}

// DefaultParams returns the engine's empty parameter set.
func (e Engine) DefaultParams() map[string]string {
	if e == Buster {
		return project.BusterParams()
	}
	return project.RefmacParams()
}

// refmacKeywords turns the refmac parameter set into keyword lines.
// Unset parameters are left to refmac's defaults.
func refmacKeywords(p map[string]string) []string {
	var kw []string
	if v := p["NCYCLES"]; v != "" {
		kw = append(kw, "NCYC "+v)
	}
	if v := p["MATRIX_WEIGHT"]; v != "" {
		kw = append(kw, "WEIGHT MATRIX "+v)
	} else {
		kw = append(kw, "WEIGHT AUTO")
	}
	if v := p["BREF"]; v != "" {
		kw = append(kw, "REFI BREF "+strings.ToUpper(v))
	}
	if v := p["TLS"]; v != "" {
		kw = append(kw, "REFI TLSC "+v)
	}
	if truthy(p["TLSADD"]) {
		kw = append(kw, "TLSO ADDU")
	}
	if truthy(p["NCS"]) {
		kw = append(kw, "NCSR LOCAL")
	}
	if truthy(p["TWIN"]) {
		kw = append(kw, "TWIN")
	}
	return append(kw, "MAKE HYDR NO", "END")
}

// busterFlags turns the buster parameter set into command line flags.
func busterFlags(p map[string]string) []string {
	var flags []string
	if truthy(p["anisotropic_Bfactor"]) {
		flags = append(flags, "-M ADP")
	}
	if truthy(p["update_water"]) {
		flags = append(flags, "-WAT")
	}
	if truthy(p["refine_ligand_occupancy"]) {
		flags = append(flags, "-M OCC")
	}
	if truthy(p["ignore_sanity_check"]) {
		flags = append(flags, "-nosanity")
	}
	return flags
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "y", "yes", "true", "on":
		return true
	}
	return false
}

// unknownParams lists keys of p the engine does not use, sorted.
func unknownParams(e Engine, p map[string]string) []string {
	known := e.DefaultParams()
	var out []string
	for k := range p {
		if _, ok := known[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
