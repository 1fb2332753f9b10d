// Package navigator moves through the registry one dataset at a time and
// keeps the graphics host showing exactly the active dataset.
package navigator

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/pdbheader"
	"github.com/xtalbatch/xtalbatch/internal/project"
	"github.com/xtalbatch/xtalbatch/internal/util/paths"
)

// Handles are the host molecules belonging to the active dataset.
type Handles struct {
	Model  host.MoleculeID
	Maps   host.MoleculeID
	Ligand host.MoleculeID
}

func emptyHandles() Handles {
	return Handles{Model: host.NoMolecule, Maps: host.NoMolecule, Ligand: host.NoMolecule}
}

// Labels are the display strings of the active dataset.
type Labels struct {
	Index      string // 1-based position, "" before the first move
	Total      string
	Sample     string
	Resolution string
	RWork      string
	RFree      string
	SpaceGroup string
	RmsdBonds  string
	RmsdAngles string
	// Fraction is (index+1)/total for the navigator progress bar.
	Fraction float64
}

// Navigator holds the cursor into the registry. Cursor is -1 until the
// first refresh and whenever the registry is empty; otherwise
// 0 <= cursor < registry length.
type Navigator struct {
	reg    *project.Registry
	host   host.Host
	logger *logging.Logger

	cursor   int
	handles  Handles
	labels   Labels
	versions paths.Allocator
}

// New creates a navigator over reg driving h.
func New(reg *project.Registry, h host.Host, logger *logging.Logger) *Navigator {
	return &Navigator{
		reg:     reg,
		host:    h,
		logger:  logging.OrDefault(logger),
		cursor:  -1,
		handles: emptyHandles(),
		labels:  Labels{Total: strconv.Itoa(reg.Len())},
	}
}

// SetRegistry swaps the registry, e.g. after a project is loaded, and
// resets the cursor.
func (n *Navigator) SetRegistry(reg *project.Registry) {
	n.reg = reg
	n.cursor = -1
	n.labels = Labels{Total: strconv.Itoa(reg.Len())}
}

// Cursor returns the current index.
func (n *Navigator) Cursor() int {
	return n.cursor
}

// Labels returns the display strings for the active dataset.
func (n *Navigator) Labels() Labels {
	return n.labels
}

// Handles returns the host molecules of the active dataset.
func (n *Navigator) Handles() Handles {
	return n.handles
}

// Active returns the dataset under the cursor, or nil.
func (n *Navigator) Active() *project.Dataset {
	return n.reg.At(n.cursor)
}

// Forward moves to the next dataset.
func (n *Navigator) Forward() error {
	n.cursor++
	return n.Refresh()
}

// Backward moves to the previous dataset.
func (n *Navigator) Backward() error {
	n.cursor--
	return n.Refresh()
}

// Goto moves to index i, clamped to the registry bounds.
func (n *Navigator) Goto(i int) error {
	n.cursor = i
	return n.Refresh()
}

// Refresh closes everything the host shows, clamps the cursor, re-reads
// the header statistics and loads the active dataset. Files are not
// checked beforehand; a missing file surfaces as the host's load error.
func (n *Navigator) Refresh() error {
	for _, id := range n.host.MoleculeList() {
		if err := n.host.CloseMolecule(id); err != nil {
			return fmt.Errorf("failed to close molecule %d: %w", id, err)
		}
	}
	n.handles = emptyHandles()

	total := n.reg.Len()
	if total == 0 {
		n.cursor = -1
		n.labels = Labels{Total: "0"}
		return project.ErrEmptyRegistry
	}
	n.clamp()

	d := n.reg.At(n.cursor)
	n.updateLabels(d, total)

	n.logger.Info().
		Str("sample", d.SampleID).
		Int("index", n.cursor+1).
		Int("total", total).
		Msg("Loading dataset")

	id, err := n.host.ReadModel(d.Model, true)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", d.Model, err)
	}
	n.handles.Model = id

	if d.Reflections != "" {
		id, err = n.host.AutoReadMaps(d.Reflections)
		if err != nil {
			return fmt.Errorf("failed to load maps from %s: %w", d.Reflections, err)
		}
		n.handles.Maps = id
	}

	if d.LigandRestraints != "" && d.LigandStructure != "" {
		if err := n.host.ReadDictionary(d.LigandRestraints); err != nil {
			return fmt.Errorf("failed to read ligand dictionary %s: %w", d.LigandRestraints, err)
		}
		id, err = n.host.ReadModel(d.LigandStructure, false)
		if err != nil {
			return fmt.Errorf("failed to load ligand %s: %w", d.LigandStructure, err)
		}
		n.handles.Ligand = id
	}
	return nil
}

func (n *Navigator) clamp() {
	if n.cursor < 0 {
		n.cursor = 0
	}
	if last := n.reg.Len() - 1; n.cursor > last {
		n.cursor = last
	}
}

func (n *Navigator) updateLabels(d *project.Dataset, total int) {
	h, err := pdbheader.Read(d.Model)
	if err != nil {
		n.logger.Warn().Err(err).Str("sample", d.SampleID).Msg("Could not read model header")
	}
	n.labels = Labels{
		Index:      strconv.Itoa(n.cursor + 1),
		Total:      strconv.Itoa(total),
		Sample:     d.SampleID,
		Resolution: h.ResolutionHigh,
		RWork:      h.RWork,
		RFree:      h.RFree,
		SpaceGroup: h.SpaceGroup,
		RmsdBonds:  h.RmsdBonds,
		RmsdAngles: h.RmsdAngles,
		Fraction:   float64(n.cursor+1) / float64(total),
	}
}

// sampleDir is <project>/<sample>, or the model's directory when the
// project directory is unknown.
func (n *Navigator) sampleDir(d *project.Dataset) string {
	if root := n.reg.Settings.ProjectDirectory; root != "" {
		return filepath.Join(root, d.SampleID)
	}
	return filepath.Dir(d.Model)
}
