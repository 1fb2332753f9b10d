package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/xtalbatch/xtalbatch/internal/project"
)

// settingsField binds one form row to a Settings field.
type settingsField struct {
	label string
	hint  string
	field func(s *project.Settings) *string
}

// The project directory is chosen with its own folder dialog and is not
// part of the form.
var settingsFields = []settingsField{
	{"Glob string", "folders under the project directory, e.g. x0*", func(s *project.Settings) *string { return &s.GlobString }},
	{"Model file", "e.g. refine.pdb", func(s *project.Settings) *string { return &s.ModelFilename }},
	{"Reflection file", "e.g. refine.mtz", func(s *project.Settings) *string { return &s.ReflectionFile }},
	{"Free-set file", "e.g. free.mtz", func(s *project.Settings) *string { return &s.FreeSetFile }},
	{"Ligand restraints", "glob, e.g. *.cif", func(s *project.Settings) *string { return &s.LigandGlob }},
}

func settingsValues(s project.Settings) []string {
	vals := make([]string, len(settingsFields))
	for i, f := range settingsFields {
		vals[i] = *f.field(&s)
	}
	return vals
}

func applySettingsValues(s *project.Settings, vals []string) {
	for i, f := range settingsFields {
		if i < len(vals) {
			*f.field(s) = vals[i]
		}
	}
}

// showSettingsDialog edits a copy of current and calls onSave with the
// result when the user confirms.
func showSettingsDialog(current project.Settings, parent fyne.Window, onSave func(project.Settings)) {
	entries := make([]*widget.Entry, len(settingsFields))
	items := make([]*widget.FormItem, 0, len(settingsFields)+1)

	fill := func(vals []string) {
		for i, e := range entries {
			e.SetText(vals[i])
		}
	}
	read := func() []string {
		vals := make([]string, len(entries))
		for i, e := range entries {
			vals[i] = e.Text
		}
		return vals
	}

	for i, f := range settingsFields {
		e := widget.NewEntry()
		e.SetPlaceHolder(f.hint)
		entries[i] = e
		items = append(items, widget.NewFormItem(f.label, e))
	}
	fill(settingsValues(current))

	revert := widget.NewButtonWithIcon("Revert to defaults", theme.ViewRefreshIcon(), func() {
		s := current
		s.RevertToDefaults()
		fill(settingsValues(s))
	})
	items = append(items, widget.NewFormItem("", revert))

	d := dialog.NewForm("Settings", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s := current
		applySettingsValues(&s, read())
		onSave(s)
	}, parent)
	d.Resize(fyne.NewSize(460, 0))
	d.Show()
}
