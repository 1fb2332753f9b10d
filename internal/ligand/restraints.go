package ligand

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/submit"
	"github.com/xtalbatch/xtalbatch/internal/validation"
)

// Options are the inputs of a restraint generation run.
type Options struct {
	ProjectDir   string
	CSV          string
	Program      string
	Subdirectory string // optional folder below the sample directory
	Cluster      bool   // submit a queue script instead of running locally
	Overwrite    bool
}

// Check validates opts and reads the CSV. Every check runs and logs its
// outcome; the returned error joins all failures. Malformed rows are logged
// and left out of the returned rows but never fail the check.
func Check(opts Options, logger *logging.Logger) (Report, error) {
	logger = logging.OrDefault(logger)
	var errs []error

	logger.Info().Str("csv", opts.CSV).Msg("Checking csv file")
	var rep Report
	if err := CheckCSV(opts.CSV); err != nil {
		logger.Error().Err(err).Msg("CSV check failed")
		errs = append(errs, err)
	} else {
		var err error
		rep, err = ReadCSV(opts.CSV)
		if err != nil {
			errs = append(errs, err)
		}
		for _, w := range rep.Warnings {
			logger.Warn().Msg(w)
		}
		for _, e := range rep.Errors {
			logger.Error().Msg(e)
		}
		logger.Info().Int("lines", rep.Lines).Int("usable", len(rep.Rows)).Msg("Read csv file")
	}

	logger.Info().Str("dir", opts.ProjectDir).Msg("Checking project directory")
	if info, err := os.Stat(opts.ProjectDir); err != nil || !info.IsDir() {
		err := fmt.Errorf("project directory %s does not exist", opts.ProjectDir)
		logger.Error().Err(err).Msg("Project directory check failed")
		errs = append(errs, err)
	}

	logger.Info().Str("program", opts.Program).Msg("Checking restraints program")
	if _, err := ParseProgram(opts.Program); err != nil {
		logger.Error().Err(err).Msg("Program check failed")
		errs = append(errs, err)
	}

	return rep, errors.Join(errs...)
}

// Result summarises a run.
type Result struct {
	Submitted []string
	Ran       []string
	Skipped   []string
	Failed    map[string]error
}

// Generator creates restraint files for CSV rows.
type Generator struct {
	cfg       *config.Config
	local     submit.Runner
	submitter *submit.Submitter
	logger    *logging.Logger
}

// NewGenerator creates a generator. local runs commands on this machine;
// submitter queues cluster scripts.
func NewGenerator(cfg *config.Config, local submit.Runner, submitter *submit.Submitter, logger *logging.Logger) *Generator {
	return &Generator{cfg: cfg, local: local, submitter: submitter, logger: logging.OrDefault(logger)}
}

// Run processes every row. A failing row is recorded and the run goes on.
func (g *Generator) Run(ctx context.Context, opts Options, rows []Row) (Result, error) {
	prog, err := ParseProgram(opts.Program)
	if err != nil {
		return Result{}, err
	}
	res := Result{Failed: map[string]error{}}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key := row.SampleID + "/" + row.LigandID
		log := g.logger.With().Str("sample", row.SampleID).Str("ligand", row.LigandID).Logger()

		dir, err := workDir(opts.ProjectDir, row.SampleID, opts.Subdirectory)
		if err != nil {
			res.Failed[key] = err
			log.Error().Err(err).Msg("Could not create sample directory")
			continue
		}

		if !opts.Overwrite {
			if _, err := os.Stat(filepath.Join(dir, row.LigandID+".cif")); err == nil {
				log.Info().Msg("Restraints exist, skipping")
				res.Skipped = append(res.Skipped, key)
				continue
			}
		}

		if opts.Cluster {
			err = g.submit(ctx, prog, dir, row)
			if err == nil {
				res.Submitted = append(res.Submitted, key)
				log.Info().Str("program", string(prog)).Msg("Submitted to cluster")
			}
		} else {
			var out []byte
			out, err = g.local.Run(ctx, dir, prog.Command(row.LigandID, row.Smiles))
			if err == nil {
				res.Ran = append(res.Ran, key)
				log.Info().Str("program", string(prog)).Msg("Generated restraints")
			} else if len(out) > 0 {
				log.Debug().Msg(strings.TrimSpace(string(out)))
			}
		}
		if err != nil {
			res.Failed[key] = err
			log.Error().Err(err).Msg("Restraint generation failed")
		}
	}
	return res, nil
}

func (g *Generator) submit(ctx context.Context, prog Program, dir string, row Row) error {
	if g.submitter == nil {
		return fmt.Errorf("no submitter configured")
	}
	text, err := RenderScript(g.cfg, prog, dir, row)
	if err != nil {
		return err
	}
	script := filepath.Join(dir, string(prog)+".sh")
	if err := os.WriteFile(script, []byte(text), 0755); err != nil {
		return fmt.Errorf("failed to write %s: %w", script, err)
	}
	return g.submitter.Submit(ctx, script)
}

func workDir(projectDir, sampleID, sub string) (string, error) {
	dir := filepath.Join(projectDir, sampleID)
	if sub != "" {
		dir = filepath.Join(dir, sub)
	}
	if err := validation.ValidatePathInDirectory(dir, projectDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

var scriptTemplate = template.Must(template.New("restraints").Parse(`#!/bin/bash
#SBATCH --time={{.Time}}
#SBATCH --job-name={{.Program}}
#SBATCH --cpus-per-task={{.CPUs}}
{{if .Module}}{{.Module}}
{{end}}cd {{.Dir}}
{{.Command}}
`))

// RenderScript returns the queue script generating restraints for row in
// dir.
func RenderScript(cfg *config.Config, prog Program, dir string, row Row) (string, error) {
	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, map[string]interface{}{
		"Time":    cfg.SlurmTime,
		"Program": prog,
		"CPUs":    cfg.SlurmCPUs,
		"Module":  prog.Module(cfg),
		"Dir":     dir,
		"Command": prog.Command(row.LigandID, row.Smiles),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s script: %w", prog, err)
	}
	return buf.String(), nil
}
