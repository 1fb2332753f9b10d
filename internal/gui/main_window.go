package gui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/discovery"
	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/navigator"
	"github.com/xtalbatch/xtalbatch/internal/progress"
	"github.com/xtalbatch/xtalbatch/internal/project"
	"github.com/xtalbatch/xtalbatch/internal/refine"
	"github.com/xtalbatch/xtalbatch/internal/submit"
)

// UI is the main window. All registry and navigator access happens on the
// fyne event loop; scans and submissions run in a goroutine while the
// action buttons are disabled.
type UI struct {
	cfg         *config.Config
	reg         *project.Registry
	nav         *navigator.Navigator
	refiner     *refine.Generator
	window      fyne.Window
	projectFile string

	ctx    context.Context
	cancel context.CancelFunc

	status       *StatusBar
	dirLabel     *widget.Label
	scanBar      *widget.ProgressBar
	navBar       *widget.ProgressBar
	values       []*widget.Label
	statusSelect *widget.Select
	actions      []*widget.Button
	busy         bool
}

// NewUI wires the navigator and refinement generator to h and the window.
func NewUI(cfg *config.Config, reg *project.Registry, h host.Host, window fyne.Window) *UI {
	ctx, cancel := context.WithCancel(context.Background())
	sub := submit.NewSubmitter(submit.NewRunner(cfg), cfg.SubmitCommand, guiLogger)

	ui := &UI{
		cfg:     cfg,
		reg:     reg,
		nav:     navigator.New(reg, h, guiLogger),
		refiner: refine.NewGenerator(cfg, sub, guiLogger),
		window:  window,
		ctx:     ctx,
		cancel:  cancel,
		status:  NewStatusBar(),
	}
	window.SetOnClosed(cancel)
	return ui
}

// Build creates the window layout.
func (ui *UI) Build() fyne.CanvasObject {
	ui.dirLabel = widget.NewLabel(dash(ui.reg.Settings.ProjectDirectory))
	ui.dirLabel.Truncation = fyne.TextTruncateEllipsis
	ui.scanBar = widget.NewProgressBar()
	ui.navBar = widget.NewProgressBar()

	readBtn := NewPrimaryButtonWithIcon("Read datasets", theme.SearchIcon(), ui.readDatasets)
	ui.actions = append(ui.actions, readBtn)

	projectBox := container.NewVBox(
		sectionHeading("Project"),
		container.NewGridWithColumns(2,
			ui.action("Load project", theme.FolderOpenIcon(), ui.loadProject),
			ui.action("Save project", theme.DocumentSaveIcon(), ui.saveProject),
			ui.action("Project directory", theme.FolderIcon(), ui.selectProjectDir),
			ui.action("Settings", theme.SettingsIcon(), ui.editSettings),
		),
		ui.dirLabel,
		readBtn,
		ui.scanBar,
	)

	grid := container.New(layout.NewFormLayout())
	for _, row := range labelRows(navigator.Labels{}) {
		v := widget.NewLabel(row[1])
		ui.values = append(ui.values, v)
		grid.Add(widget.NewLabel(row[0]))
		grid.Add(v)
	}

	ui.statusSelect = widget.NewSelect(project.StatusCategories(), ui.setDatasetStatus)
	ui.statusSelect.PlaceHolder = "Dataset status"
	ui.statusSelect.Disable()

	navigation := container.NewVBox(
		sectionHeading("Navigator"),
		container.NewGridWithColumns(2,
			ui.action("<<<", theme.NavigateBackIcon(), func() { ui.navigate(ui.nav.Backward) }),
			ui.action(">>>", theme.NavigateNextIcon(), func() { ui.navigate(ui.nav.Forward) }),
		),
		ui.navBar,
		grid,
		ui.statusSelect,
	)

	modelling := container.NewVBox(
		sectionHeading("Modelling"),
		container.NewGridWithColumns(2,
			ui.action("Place ligand here", theme.MoveDownIcon(), ui.placeLigand),
			ui.action("Merge ligand", theme.ContentAddIcon(), ui.mergeLigand),
			ui.action("Save model", theme.DocumentSaveIcon(), ui.saveModel),
			ui.action("Refine", theme.MediaPlayIcon(), ui.refineActive),
		),
	)

	body := container.NewVBox(projectBox, VerticalSpacer(8), navigation, VerticalSpacer(8), modelling)
	return container.NewBorder(nil, ui.status, nil, nil, container.NewVScroll(container.NewPadded(body)))
}

func (ui *UI) action(label string, icon fyne.Resource, tapped func()) *widget.Button {
	btn := widget.NewButtonWithIcon(label, icon, tapped)
	ui.actions = append(ui.actions, btn)
	return btn
}

func (ui *UI) setBusy(busy bool) {
	ui.busy = busy
	for _, b := range ui.actions {
		if busy {
			b.Disable()
		} else {
			b.Enable()
		}
	}
	if busy {
		ui.statusSelect.Disable()
	} else {
		ui.updateStatusSelect()
	}
}

// navigate runs a cursor move and redraws the labels whatever the outcome.
func (ui *UI) navigate(move func() error) {
	err := move()
	ui.updateLabels()
	switch {
	case errors.Is(err, project.ErrEmptyRegistry):
		ui.status.SetInfo("No datasets. Read datasets or load a project first.")
	case err != nil:
		ui.status.SetError(err.Error())
	default:
		ui.status.SetInfo("Showing " + ui.nav.Labels().Sample)
	}
}

func (ui *UI) updateLabels() {
	l := ui.nav.Labels()
	for i, row := range labelRows(l) {
		ui.values[i].SetText(row[1])
	}
	ui.navBar.SetValue(l.Fraction)
	ui.updateStatusSelect()
}

// updateStatusSelect mirrors the active dataset's status. The select stays
// disabled while a background job may still write that status.
func (ui *UI) updateStatusSelect() {
	status, ok := statusSelection(ui.nav.Active())
	if status == "" {
		ui.statusSelect.ClearSelected()
	} else {
		// SetSelected fires OnChanged; writing the same value back is harmless.
		ui.statusSelect.SetSelected(status)
	}
	if ok && !ui.busy {
		ui.statusSelect.Enable()
	} else {
		ui.statusSelect.Disable()
	}
}

// statusSelection returns the status to show for d and whether it can be edited.
func statusSelection(d *project.Dataset) (string, bool) {
	if d == nil {
		return "", false
	}
	return d.Status, true
}

func (ui *UI) setDatasetStatus(status string) {
	if d := ui.nav.Active(); d != nil {
		d.Status = status
	}
}

func (ui *UI) loadProject() {
	open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()

		reg, err := project.Load(path)
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		ui.reg = reg
		ui.projectFile = path
		ui.nav.SetRegistry(reg)
		ui.dirLabel.SetText(dash(reg.Settings.ProjectDirectory))
		ui.updateLabels()
		ui.status.SetSuccess(fmt.Sprintf("Loaded %d dataset(s) from %s", reg.Len(), filepath.Base(path)))
	}, ui.window)
	open.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	open.Show()
}

func (ui *UI) saveProject() {
	save := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if w == nil {
			return
		}
		path := w.URI().Path()
		w.Close()

		saved, err := ui.reg.Save(path)
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		ui.projectFile = saved
		ui.status.SetSuccess("Project saved to " + saved)
	}, ui.window)
	name := "xtalbatch.json"
	if ui.projectFile != "" {
		name = filepath.Base(ui.projectFile)
	}
	save.SetFileName(name)
	save.Show()
}

func (ui *UI) selectProjectDir() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if dir == nil {
			return
		}
		ui.reg.Settings.ProjectDirectory = dir.Path()
		ui.dirLabel.SetText(dir.Path())
	}, ui.window)
}

func (ui *UI) editSettings() {
	showSettingsDialog(ui.reg.Settings, ui.window, func(s project.Settings) {
		ui.reg.Settings = s
		ui.status.SetInfo("Settings changed; save the project to keep them")
	})
}

func (ui *UI) readDatasets() {
	if ui.busy {
		return
	}
	if ui.reg.Settings.ProjectDirectory == "" {
		ui.status.SetError("Select a project directory first")
		return
	}

	ui.setBusy(true)
	ui.status.SetProgress("Reading datasets...")
	reporter := progress.NewFuncProgress(func(f float64) {
		fyne.Do(func() { ui.scanBar.SetValue(f) })
	})
	reg := ui.reg

	go func() {
		res, err := discovery.NewWalker(guiLogger, reporter).Scan(ui.ctx, reg)
		fyne.Do(func() {
			ui.setBusy(false)
			if err != nil {
				ui.status.SetError(err.Error())
				return
			}
			ui.status.SetSuccess(scanSummary(res, reg.Len()))
		})
	}()
}

func (ui *UI) placeLigand() {
	if err := ui.nav.PlaceLigand(); err != nil {
		ui.status.SetError(err.Error())
		return
	}
	ui.status.SetInfo("Ligand moved to the screen centre")
}

func (ui *UI) mergeLigand() {
	if err := ui.nav.MergeLigand(); err != nil {
		ui.status.SetError(err.Error())
		return
	}
	ui.status.SetInfo("Ligand merged into the model")
}

func (ui *UI) saveModel() {
	path, err := ui.nav.SaveModel()
	if err != nil {
		ui.status.SetError(err.Error())
		return
	}
	ui.status.SetSuccess("Model saved to " + path)
}

func (ui *UI) refineActive() {
	if ui.busy {
		return
	}
	d := ui.nav.Active()
	if d == nil {
		ui.status.SetError("No active dataset")
		return
	}

	ui.setBusy(true)
	ui.status.SetProgress("Submitting refinement of " + d.SampleID + "...")
	projectDir := ui.reg.Settings.ProjectDirectory

	go func() {
		job, err := ui.refiner.Refine(ui.ctx, projectDir, d)
		fyne.Do(func() {
			ui.setBusy(false)
			ui.updateLabels()
			if err != nil {
				guiLogger.Error().Err(err).Str("sample", d.SampleID).Msg("Refinement not started")
				ui.status.SetError(err.Error())
				return
			}
			ui.status.SetSuccess(fmt.Sprintf("%s: %s cycle %d submitted", d.SampleID, job.Engine, job.Cycle))
		})
	}()
}

// labelRows returns the caption/value pairs of the navigator grid.
func labelRows(l navigator.Labels) [][2]string {
	position := "-"
	if l.Index != "" {
		position = l.Index + " / " + l.Total
	}
	return [][2]string{
		{"Dataset", position},
		{"Sample", dash(l.Sample)},
		{"Resolution", dash(l.Resolution)},
		{"Rwork", dash(l.RWork)},
		{"Rfree", dash(l.RFree)},
		{"Space group", dash(l.SpaceGroup)},
		{"RMSD bonds", dash(l.RmsdBonds)},
		{"RMSD angles", dash(l.RmsdAngles)},
	}
}

func scanSummary(res discovery.Result, total int) string {
	s := fmt.Sprintf("%d dataset(s): %d new, %d updated", total, len(res.Created), len(res.Updated))
	if n := len(res.Skipped); n > 0 {
		s += fmt.Sprintf(", %d skipped", n)
	}
	if n := len(res.Warnings); n > 0 {
		s += fmt.Sprintf(", %d warning(s)", n)
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
