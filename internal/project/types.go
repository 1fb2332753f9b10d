// Package project holds the dataset registry: project settings plus the
// ordered list of per-sample dataset records, persisted as a JSON document.
package project

// Settings are the project-wide discovery settings.
type Settings struct {
	ProjectDirectory string `json:"project_directory"`
	GlobString       string `json:"glob_string"`
	ModelFilename    string `json:"pdb"`
	ReflectionFile   string `json:"mtz"`
	FreeSetFile      string `json:"mtz_free"`
	LigandGlob       string `json:"ligand_cif"`
}

// Defaults returns the settings a new project starts with.
func Defaults() Settings {
	return Settings{
		ProjectDirectory: "",
		GlobString:       "*",
		ModelFilename:    "refine.pdb",
		ReflectionFile:   "refine.mtz",
		FreeSetFile:      "free.mtz",
		LigandGlob:       "*.cif",
	}
}

// RevertToDefaults resets every field except the project directory.
func (s *Settings) RevertToDefaults() {
	dir := s.ProjectDirectory
	*s = Defaults()
	s.ProjectDirectory = dir
}

// Dataset is one sample's set of associated files and refinement state.
// SampleID is the identity key.
type Dataset struct {
	SampleID          string            `json:"sample_ID"`
	Model             string            `json:"pdb"`
	Reflections       string            `json:"mtz"`
	FreeSet           string            `json:"mtz_free"`
	LigandRestraints  string            `json:"ligand_cif"`
	LigandStructure   string            `json:"ligand_pdb"`
	Status            string            `json:"status"`
	RefinementProgram string            `json:"refinement_program"`
	RefinementParams  map[string]string `json:"refinement_params"`
	Tag               string            `json:"tag"`
}

// Status categories shown in the dataset selector.
const (
	StatusRejected        = "-1 - Analysed & Rejected"
	StatusAll             = "0 - All Datasets"
	StatusAnalysisPending = "1 - Analysis Pending"
	StatusInRefinement    = "2 - In Refinement"
	StatusDepositionReady = "3 - Deposition ready"
)

// StatusCategories returns the status values in display order.
func StatusCategories() []string {
	return []string{
		StatusRejected,
		StatusAll,
		StatusAnalysisPending,
		StatusInRefinement,
		StatusDepositionReady,
	}
}

// RefmacParams returns the empty parameter set for refmac refinements.
func RefmacParams() map[string]string {
	return map[string]string{
		"TLSADD":        "",
		"NCYCLES":       "",
		"MATRIX_WEIGHT": "",
		"BREF":          "",
		"TLS":           "",
		"NCS":           "",
		"TWIN":          "",
	}
}

// BusterParams returns the empty parameter set for buster refinements.
func BusterParams() map[string]string {
	return map[string]string{
		"anisotropic_Bfactor":     "",
		"update_water":            "",
		"refine_ligand_occupancy": "",
		"ignore_sanity_check":     "",
	}
}
