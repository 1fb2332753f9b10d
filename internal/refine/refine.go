package refine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/project"
	"github.com/xtalbatch/xtalbatch/internal/util/paths"
)

// Submitter queues a written script.
type Submitter interface {
	Submit(ctx context.Context, script string) error
}

// Generator prepares and submits refinement jobs.
type Generator struct {
	cfg       *config.Config
	alloc     *paths.Allocator
	submitter Submitter
	logger    *logging.Logger
}

// NewGenerator creates a generator. A nil submitter only writes scripts.
func NewGenerator(cfg *config.Config, submitter Submitter, logger *logging.Logger) *Generator {
	return &Generator{
		cfg:       cfg,
		alloc:     &paths.Allocator{},
		submitter: submitter,
		logger:    logging.OrDefault(logger),
	}
}

func (g *Generator) cyclePattern() paths.Pattern {
	return paths.Pattern{Prefix: g.cfg.CyclePrefix}
}

// NextCycle returns the cycle number the next job in sampleDir would get,
// as a string: one more than the highest existing cycle directory, or "1".
// It does not reserve the number; Prepare does.
func (g *Generator) NextCycle(sampleDir string) (string, error) {
	n, err := g.cyclePattern().Next(sampleDir, 1)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

// ScriptPath is where the refinement script for sample is written.
func (g *Generator) ScriptPath(projectDir, sample string) string {
	ext := g.cfg.ScriptFormat
	if ext == "" {
		ext = "sh"
	}
	return filepath.Join(projectDir, g.cfg.ScriptDir, "refine_"+sample+"."+ext)
}

// Prepare selects the engine, claims the next cycle directory and writes
// the script. The dataset is marked as in refinement.
func (g *Generator) Prepare(projectDir string, d *project.Dataset) (Job, string, error) {
	if projectDir == "" {
		return Job{}, "", fmt.Errorf("project directory is not set")
	}
	if d.Model == "" || d.Reflections == "" {
		return Job{}, "", fmt.Errorf("%s: model and reflection file are required", d.SampleID)
	}
	sampleDir := filepath.Join(projectDir, d.SampleID)

	engine, err := SelectEngine(g.cfg, sampleDir, d)
	if err != nil {
		return Job{}, "", err
	}
	params := d.RefinementParams
	if params == nil {
		params = engine.DefaultParams()
	}
	if extra := unknownParams(engine, params); len(extra) > 0 {
		g.logger.Warn().Str("sample", d.SampleID).Strs("params", extra).Msgf("Parameters not used by %s", engine)
	}

	cycle, cycleDir, err := g.alloc.Claim(sampleDir, g.cyclePattern(), 1)
	if err != nil {
		return Job{}, "", fmt.Errorf("%s: failed to allocate refinement cycle: %w", d.SampleID, err)
	}

	job := Job{
		Sample:           d.SampleID,
		Engine:           engine,
		Cycle:            cycle,
		SampleDir:        sampleDir,
		CycleDir:         cycleDir,
		Model:            d.Model,
		Reflections:      d.Reflections,
		FreeSet:          d.FreeSet,
		LigandRestraints: d.LigandRestraints,
		Params:           params,
		Time:             g.cfg.SlurmTime,
		CPUs:             g.cfg.SlurmCPUs,
		Module:           engine.Module(g.cfg),
	}
	text, err := Render(job, g.cfg.ScriptFormat)
	if err != nil {
		return Job{}, "", err
	}

	script := g.ScriptPath(projectDir, d.SampleID)
	if err := os.MkdirAll(filepath.Dir(script), 0755); err != nil {
		return Job{}, "", fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(script, []byte(text), 0755); err != nil {
		return Job{}, "", fmt.Errorf("failed to write %s: %w", script, err)
	}

	d.RefinementParams = params
	d.Status = project.StatusInRefinement

	g.logger.Info().
		Str("sample", d.SampleID).
		Str("engine", string(engine)).
		Int("cycle", cycle).
		Str("script", script).
		Msg("Prepared refinement")
	return job, script, nil
}

// Refine prepares the job for d and submits it.
func (g *Generator) Refine(ctx context.Context, projectDir string, d *project.Dataset) (Job, error) {
	job, script, err := g.Prepare(projectDir, d)
	if err != nil {
		return Job{}, err
	}
	if g.submitter == nil {
		return job, nil
	}
	if err := g.submitter.Submit(ctx, script); err != nil {
		return job, err
	}
	return job, nil
}
