// Package gui provides the graphical navigator for xtalbatch.
package gui

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"

	"github.com/xtalbatch/xtalbatch/internal/config"
	"github.com/xtalbatch/xtalbatch/internal/host"
	"github.com/xtalbatch/xtalbatch/internal/logging"
	"github.com/xtalbatch/xtalbatch/internal/project"
	"github.com/xtalbatch/xtalbatch/internal/version"
)

var (
	// guiLogger is the package-level logger for GUI mode
	guiLogger *logging.Logger
)

// Options configure LaunchGUI.
type Options struct {
	ConfigFile  string
	ProjectFile string // loaded at startup when non-empty
	ScriptOut   string // Coot command output; "" or "-" is stdout
	Debug       bool
}

// LaunchGUI opens the main window and blocks until it is closed.
func LaunchGUI(opts Options) error {
	guiLogger = logging.NewLogger(logging.ModeGUI)

	// Warnings only unless asked; the terminal behind the window stays quiet.
	if opts.Debug || os.Getenv("XTALBATCH_DEBUG") != "" {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		guiLogger.Info().Msg("Debug logging enabled")
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use the scan, show and open commands instead")
		}
	}

	cfg := loadConfig(opts.ConfigFile)

	out, closeOut, err := scriptWriter(opts.ScriptOut)
	if err != nil {
		return err
	}
	defer closeOut()

	reg := project.New()
	if opts.ProjectFile != "" {
		loaded, err := project.Load(opts.ProjectFile)
		if err != nil {
			guiLogger.Warn().Err(err).Str("path", opts.ProjectFile).Msg("Failed to load project, starting empty")
		} else {
			reg = loaded
		}
	}

	myApp := app.NewWithID("org.xtalbatch.navigator")
	myApp.Settings().SetTheme(&xtalTheme{})

	mainWindow := myApp.NewWindow("xtalbatch " + version.Version)
	mainWindow.SetMaster()

	ui := NewUI(cfg, reg, host.NewCootScript(out), mainWindow)
	ui.projectFile = opts.ProjectFile

	mainWindow.SetContent(ui.Build())
	mainWindow.Resize(fyne.NewSize(520, 640))
	mainWindow.CenterOnScreen()
	mainWindow.ShowAndRun()

	return nil
}

// loadConfig falls back to defaults whenever the file is missing or invalid.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	cfg, err := config.LoadConfigCSV(path)
	if err != nil {
		guiLogger.Warn().Err(err).Str("path", path).Msg("Failed to load config, using defaults")
		return config.Default()
	}
	if err := cfg.Validate(); err != nil {
		guiLogger.Warn().Err(err).Str("path", path).Msg("Invalid config, using defaults")
		return config.Default()
	}
	return cfg
}

func scriptWriter(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
