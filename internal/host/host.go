// Package host defines the boundary to the molecular-graphics program that
// displays models and maps. Everything behind Host belongs to that program;
// this repository only decides what to load and when.
package host

// MoleculeID is the handle the graphics program hands back for a loaded
// model or map.
type MoleculeID int

// NoMolecule marks an unset handle.
const NoMolecule MoleculeID = -1

// Host is the subset of the graphics program's API the tools drive.
type Host interface {
	// MoleculeList returns every molecule currently open.
	MoleculeList() []MoleculeID
	// CloseMolecule closes one model or map.
	CloseMolecule(id MoleculeID) error
	// ReadModel loads a coordinate file, optionally recentring the view on it.
	ReadModel(path string, recentre bool) (MoleculeID, error)
	// AutoReadMaps builds and displays the default maps from a reflection file.
	AutoReadMaps(path string) (MoleculeID, error)
	// ReadDictionary loads a ligand restraint dictionary.
	ReadDictionary(path string) error
	// MoveMoleculeHere moves a molecule to the current pointer position.
	MoveMoleculeHere(id MoleculeID) error
	// MergeMolecules merges the molecules in src into dst.
	MergeMolecules(src []MoleculeID, dst MoleculeID) error
	// WriteModel writes molecule id to path.
	WriteModel(id MoleculeID, path string) error
}
