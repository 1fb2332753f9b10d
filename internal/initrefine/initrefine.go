package initrefine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/mtz"
	"github.com/xtalbatch/xtalbatch/internal/pdbheader"
)

// MaxVolumeDifference is the largest relative unit-cell volume difference
// at which a reference model is considered isomorphous.
const MaxVolumeDifference = 0.1

// Options are the inputs of a run.
type Options struct {
	ProcessDir string
	ProjectDir string
	PDBDir     string
	Autoproc   string
	Refine     string
	Overwrite  bool
	Submit     bool
}

// SampleResult is what happened to one sample.
type SampleResult struct {
	Sample     string
	MTZ        string
	Log        string
	Resolution float64
	PDB        string
	Script     string
	Submitted  bool
	Skipped    string // reason, empty when processed
	Err        error
}

// Submitter queues a written script.
type Submitter interface {
	Submit(ctx context.Context, script string) error
}

// Runner runs the initial refinement over a processing directory.
type Runner struct {
	cfg       *config.Config
	submitter Submitter
	logger    *logging.Logger
}

// NewRunner creates a runner. submitter may be nil when Options.Submit is
// false.
func NewRunner(cfg *config.Config, submitter Submitter, logger *logging.Logger) *Runner {
	return &Runner{cfg: cfg, submitter: submitter, logger: logging.OrDefault(logger)}
}

// Run processes every sample folder below opts.ProcessDir in name order.
// Per-sample failures are recorded in the result and do not stop the run.
func (r *Runner) Run(ctx context.Context, opts Options) ([]SampleResult, error) {
	ap, err := LookupAutoproc(opts.Autoproc)
	if err != nil {
		return nil, err
	}
	refiner, err := ParseRefiner(opts.Refine)
	if err != nil {
		return nil, err
	}
	if opts.Submit && r.submitter == nil {
		return nil, errors.New("submission requested but no submitter configured")
	}
	for _, d := range []string{opts.ProcessDir, opts.ProjectDir, opts.PDBDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("directory %q does not exist", d)
		}
	}

	entries, err := os.ReadDir(opts.ProcessDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", opts.ProcessDir, err)
	}
	refs, err := loadReferences(opts.PDBDir, r.logger)
	if err != nil {
		return nil, err
	}

	var results []SampleResult
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.sample(ctx, opts, ap, refiner, refs, e.Name())
		if res.Err != nil {
			r.logger.Error().Err(res.Err).Str("sample", res.Sample).Msg("Initial refinement failed")
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) sample(ctx context.Context, opts Options, ap Autoproc, refiner Refiner, refs []reference, sample string) SampleResult {
	res := SampleResult{Sample: sample}
	log := r.logger.With().Str("sample", sample).Logger()

	sampleDir := filepath.Join(opts.ProjectDir, sample)
	if err := os.MkdirAll(sampleDir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create sample folder: %w", err)
		return res
	}

	if !opts.Overwrite {
		if _, err := os.Stat(filepath.Join(sampleDir, string(refiner))); err == nil {
			res.Skipped = string(refiner) + " results exist"
			log.Info().Msg("Already refined, skipping")
			return res
		}
	}

	best, ok := bestResult(filepath.Join(opts.ProcessDir, sample), ap, r.logger)
	if !ok {
		res.Skipped = "no " + ap.Name + " results"
		log.Warn().Str("pipeline", ap.Name).Msg("No autoprocessing results")
		return res
	}
	res.MTZ, res.Log, res.Resolution = best.path, best.log, best.header.ResolutionHigh()
	log.Info().Str("mtz", best.path).Float64("resolution", res.Resolution).Msg("Selected autoprocessing result")

	if err := link(best.path, filepath.Join(sampleDir, "process.mtz"), opts.Overwrite); err != nil {
		res.Err = err
		return res
	}
	if best.log != "" {
		if err := link(best.log, filepath.Join(sampleDir, "process.log"), opts.Overwrite); err != nil {
			res.Err = err
			return res
		}
	}

	ref, ok := matchReference(best.header, refs)
	if !ok {
		res.Skipped = "no matching reference model"
		log.Warn().Str("point_group", best.header.NormalizedPointGroup()).Msg("No reference model with matching point group and cell volume")
		return res
	}
	res.PDB = ref.path

	script, err := r.writeScript(refiner, sampleDir, ref.path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Script = script

	if opts.Submit {
		if err := r.submitter.Submit(ctx, script); err != nil {
			res.Err = err
			return res
		}
		res.Submitted = true
	}
	return res
}

type candidate struct {
	path   string
	log    string
	header mtz.Header
}

// bestResult returns the autoprocessing MTZ with the lowest high
// resolution limit.
func bestResult(processSample string, ap Autoproc, logger *logging.Logger) (candidate, bool) {
	matches, err := filepath.Glob(filepath.Join(processSample, ap.Glob))
	if err != nil {
		return candidate{}, false
	}
	sort.Strings(matches)

	var best candidate
	found := false
	for _, m := range matches {
		h, err := mtz.ReadFile(m)
		if err != nil {
			logger.Warn().Err(err).Str("mtz", m).Msg("Skipping unreadable MTZ")
			continue
		}
		if h.ResoMax <= 0 {
			continue
		}
		if !found || h.ResolutionHigh() < best.header.ResolutionHigh() {
			best = candidate{path: m, header: h}
			found = true
		}
	}
	if found {
		if l := ap.LogFor(best.path); l != "" {
			if info, err := os.Stat(l); err == nil && info.Mode().IsRegular() {
				best.log = l
			}
		}
	}
	return best, found
}

// link points name at target unless name exists and overwrite is false.
func link(target, name string, overwrite bool) error {
	if _, err := os.Lstat(name); err == nil {
		if !overwrite {
			return nil
		}
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("failed to replace %s: %w", name, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(target, name); err != nil {
		return fmt.Errorf("failed to link %s: %w", name, err)
	}
	return nil
}

type reference struct {
	path   string
	header pdbheader.Header
}

func loadReferences(dir string, logger *logging.Logger) ([]reference, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdb"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var refs []reference
	for _, m := range matches {
		h, err := pdbheader.Read(m)
		if err != nil || h.Cell.IsZero() || h.SpaceGroup == "" {
			logger.Warn().Str("pdb", m).Msg("Reference model has no usable CRYST1 record")
			continue
		}
		refs = append(refs, reference{path: m, header: h})
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no reference models with a CRYST1 record in %s", dir)
	}
	return refs, nil
}

// matchReference returns the reference with the same point group and the
// smallest cell volume difference, if that is below MaxVolumeDifference.
func matchReference(h mtz.Header, refs []reference) (reference, bool) {
	pg := h.NormalizedPointGroup()
	var best reference
	bestDiff := MaxVolumeDifference
	found := false
	for _, ref := range refs {
		if ref.header.PointGroup() != pg {
			continue
		}
		if diff := h.Cell.RelativeVolumeDifference(ref.header.Cell); diff < bestDiff {
			best, bestDiff, found = ref, diff, true
		}
	}
	return best, found
}

var scriptTemplate = template.Must(template.New("init").Parse(`#!/bin/bash
#SBATCH --time={{.Time}}
#SBATCH --job-name={{.Refiner}}
#SBATCH --cpus-per-task={{.CPUs}}
{{if .Module}}{{.Module}}
{{end}}cd {{.Dir}}
{{.Command}}
`))

func (r *Runner) writeScript(refiner Refiner, sampleDir, pdb string) (string, error) {
	module := r.cfg.CCP4Module
	if refiner == Pipedream {
		module = r.cfg.BusterModule
	}
	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, map[string]interface{}{
		"Time":    r.cfg.SlurmTime,
		"Refiner": refiner,
		"CPUs":    r.cfg.SlurmCPUs,
		"Module":  module,
		"Dir":     sampleDir,
		"Command": refiner.Command(pdb),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s script: %w", refiner, err)
	}
	script := filepath.Join(sampleDir, string(refiner)+".sh")
	if err := os.WriteFile(script, buf.Bytes(), 0755); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", script, err)
	}
	return script, nil
}
