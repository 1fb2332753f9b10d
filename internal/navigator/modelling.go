package navigator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xtalbatch/xtalbatch/internal/diskspace"
	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/util/paths"
)

// ModelledDir is the per-sample directory saved models go to.
const ModelledDir = "modelled_structures"

var versionPattern = paths.Pattern{Prefix: "fitted-v", Suffix: ".pdb", Width: 4}

// ErrNoLigand is returned by ligand operations when none is loaded.
var ErrNoLigand = errors.New("no ligand loaded for this dataset")

// ErrNoModel is returned when nothing is loaded yet.
var ErrNoModel = errors.New("no model loaded")

// PlaceLigand moves the ligand molecule to the pointer.
func (n *Navigator) PlaceLigand() error {
	if n.handles.Ligand == host.NoMolecule {
		return ErrNoLigand
	}
	return n.host.MoveMoleculeHere(n.handles.Ligand)
}

// MergeLigand merges the ligand into the model and closes the ligand
// molecule.
func (n *Navigator) MergeLigand() error {
	if n.handles.Model == host.NoMolecule {
		return ErrNoModel
	}
	if n.handles.Ligand == host.NoMolecule {
		return ErrNoLigand
	}
	if err := n.host.MergeMolecules([]host.MoleculeID{n.handles.Ligand}, n.handles.Model); err != nil {
		return fmt.Errorf("failed to merge ligand: %w", err)
	}
	if err := n.host.CloseMolecule(n.handles.Ligand); err != nil {
		return fmt.Errorf("failed to close ligand: %w", err)
	}
	n.handles.Ligand = host.NoMolecule
	return nil
}

// SaveModel writes the model to the next fitted-vNNNN.pdb in the sample's
// modelled_structures directory and points <sample>-model.pdb at it. It
// returns the path written.
func (n *Navigator) SaveModel() (string, error) {
	d := n.Active()
	if d == nil || n.handles.Model == host.NoMolecule {
		return "", ErrNoModel
	}

	dir := filepath.Join(n.sampleDir(d), ModelledDir)

	// The written model is about the size of the one on disk; keep room for
	// the symlink copy on Windows as well.
	if info, err := os.Stat(d.Model); err == nil {
		if err := diskspace.CheckAvailableSpace(dir, info.Size(), 2); err != nil {
			return "", err
		}
	}

	// The host may write asynchronously, so the version is reserved on disk
	// before the write command is issued.
	_, target, err := n.versions.ClaimFile(dir, versionPattern, 1)
	if err != nil {
		return "", err
	}
	name := filepath.Base(target)

	if err := n.host.WriteModel(n.handles.Model, target); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}

	link := filepath.Join(dir, d.SampleID+"-model.pdb")
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to replace %s: %w", link, err)
	}
	if runtime.GOOS == "windows" {
		err = copyFile(target, link)
	} else {
		err = os.Symlink(name, link)
	}
	if err != nil {
		return "", fmt.Errorf("failed to link %s: %w", link, err)
	}

	n.logger.Info().Str("sample", d.SampleID).Str("file", name).Msg("Saved model")
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
