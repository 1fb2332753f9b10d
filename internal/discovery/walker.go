// Package discovery walks a project directory, pairs the model, reflection,
// free-set and ligand restraint files of every sample by naming
// convention, and merges them into the registry.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/progress"
	"github.com/xtalbatch/xtalbatch/internal/project"
)

// Result summarises one scan.
type Result struct {
	TotalCount int      // model files matched by the glob
	Created    []string // sample ids appended to the registry
	Updated    []string // sample ids already present and refreshed
	Skipped    []string // paths rejected (broken links, directories)
	Warnings   []string // missing companion files
}

// Walker scans a project directory into a registry.
type Walker struct {
	logger   *logging.Logger
	reporter progress.Reporter
}

// NewWalker creates a walker. A nil reporter disables progress output.
func NewWalker(logger *logging.Logger, reporter progress.Reporter) *Walker {
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	return &Walker{logger: logging.OrDefault(logger), reporter: reporter}
}

// Scan matches <project>/<glob_string>/<model filename> and upserts one
// record per sample. Records already in the registry keep their position
// and have their path fields overwritten. A cancelled context stops the
// scan between samples; work done so far stays in the registry.
func (w *Walker) Scan(ctx context.Context, reg *project.Registry) (Result, error) {
	s := reg.Settings
	if s.ProjectDirectory == "" {
		return Result{}, fmt.Errorf("project directory is not set")
	}
	if s.ModelFilename == "" {
		return Result{}, fmt.Errorf("model file name is not set")
	}
	glob := s.GlobString
	if glob == "" {
		glob = "*"
	}

	pattern := filepath.Join(s.ProjectDirectory, glob, s.ModelFilename)
	models, err := filepath.Glob(pattern)
	if err != nil {
		return Result{}, fmt.Errorf("invalid model pattern %s: %w", pattern, err)
	}
	sort.Strings(models)

	res := Result{TotalCount: len(models)}
	w.reporter.Start(int64(len(models)), "reading datasets")
	defer w.reporter.Finish()

	for n, model := range models {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		// Broken symlinks fail Stat; directories are not models.
		if info, err := os.Stat(model); err != nil || !info.Mode().IsRegular() {
			w.logger.Warn().Str("path", model).Msg("Skipping unreadable model file")
			res.Skipped = append(res.Skipped, model)
			w.reporter.Update(int64(n + 1))
			continue
		}

		sampleID, err := SampleID(s.ProjectDirectory, model)
		if err != nil {
			res.Skipped = append(res.Skipped, model)
			w.reporter.Update(int64(n + 1))
			continue
		}

		w.logger.Debug().Str("sample", sampleID).Msg("Checking folder")
		d, created := reg.Upsert(sampleID)
		if created {
			res.Created = append(res.Created, sampleID)
		} else {
			w.logger.Debug().Str("sample", sampleID).Msg("Sample exists, updating")
			res.Updated = append(res.Updated, sampleID)
		}

		res.Warnings = append(res.Warnings, w.pair(d, s, model)...)
		w.reporter.Update(int64(n + 1))
	}

	w.logger.Info().
		Int("models", res.TotalCount).
		Int("new", len(res.Created)).
		Int("updated", len(res.Updated)).
		Int("skipped", len(res.Skipped)).
		Msg("Dataset scan complete")
	return res, nil
}

// pair fills the path fields of d from files next to model.
func (w *Walker) pair(d *project.Dataset, s project.Settings, model string) []string {
	var warnings []string
	warn := func(what string) {
		msg := fmt.Sprintf("%s: no %s found", d.SampleID, what)
		w.logger.Warn().Str("sample", d.SampleID).Msgf("No %s found", what)
		warnings = append(warnings, msg)
	}

	dirs := searchDirs(s.ProjectDirectory, d.SampleID, model)
	d.Model = model

	d.Reflections = firstFile(dirs, s.ReflectionFile)
	if d.Reflections == "" {
		warn("reflection file " + s.ReflectionFile)
	}

	d.FreeSet = firstFile(dirs, s.FreeSetFile)
	if d.FreeSet == "" {
		warn("free-set file " + s.FreeSetFile)
	}

	d.LigandRestraints, d.LigandStructure = findLigand(dirs, s.LigandGlob, model)
	if d.LigandRestraints == "" {
		warn("ligand restraints with matching structure file")
	}
	return warnings
}

// SampleID returns the first path segment of path below root.
func SampleID(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("%s is not below %s: %w", path, root, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not below %s", path, root)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return "", fmt.Errorf("%s has no sample directory below %s", path, root)
	}
	return parts[0], nil
}

// searchDirs returns the model's directory and, when different, the
// sample directory.
func searchDirs(root, sampleID, model string) []string {
	modelDir := filepath.Dir(model)
	sampleDir := filepath.Join(root, sampleID)
	if filepath.Clean(modelDir) == filepath.Clean(sampleDir) {
		return []string{modelDir}
	}
	return []string{modelDir, sampleDir}
}

// firstFile returns the first regular file matching name (a file name or
// glob) in dirs.
func firstFile(dirs []string, name string) string {
	if name == "" {
		return ""
	}
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, name))
		if err != nil {
			return ""
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				return m
			}
		}
	}
	return ""
}

// findLigand returns the first restraint file matching glob that has a
// structure file with the same base name and a .pdb extension.
func findLigand(dirs []string, glob, model string) (cif, pdb string) {
	if glob == "" {
		return "", ""
	}
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, glob))
		if err != nil {
			return "", ""
		}
		sort.Strings(matches)
		for _, m := range matches {
			if m == model {
				continue
			}
			companion := strings.TrimSuffix(m, filepath.Ext(m)) + ".pdb"
			if companion == model {
				continue
			}
			if info, err := os.Stat(companion); err == nil && info.Mode().IsRegular() {
				return m, companion
			}
		}
	}
	return "", ""
}
