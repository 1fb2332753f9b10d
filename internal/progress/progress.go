// Package progress provides a unified interface for progress reporting
// across CLI (progress bars) and GUI (callback) modes.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter is the interface for reporting progress in both CLI and GUI modes.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements progress reporting for CLI mode using progress bars.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a new CLI progress reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{out: os.Stderr}
}

// ForTerminal returns a progress bar when stderr is a terminal and a no-op
// reporter otherwise, so piped output stays clean.
func ForTerminal() Reporter {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return NewCLIProgress()
	}
	return NewNoOpProgress()
}

// Start initializes the progress bar with total count and description.
func (p *CLIProgress) Start(total int64, description string) {
	out := p.out
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// FuncProgress forwards progress as a fraction in [0, 1]. The GUI hands it
// a closure that moves its progress bar.
type FuncProgress struct {
	OnFraction func(f float64)
	OnError    func(err error)

	total int64
}

// NewFuncProgress creates a callback reporter.
func NewFuncProgress(onFraction func(float64)) *FuncProgress {
	return &FuncProgress{OnFraction: onFraction}
}

// Start resets the fraction to 0.
func (p *FuncProgress) Start(total int64, description string) {
	p.total = total
	p.emit(0)
}

// Update reports current/total.
func (p *FuncProgress) Update(current int64) {
	if p.total <= 0 {
		return
	}
	p.emit(float64(current) / float64(p.total))
}

// Finish resets the fraction to 0, the way the scan indicator is cleared
// once discovery completes.
func (p *FuncProgress) Finish() {
	p.emit(0)
}

// Error forwards err to OnError if set.
func (p *FuncProgress) Error(err error) {
	if err != nil && p.OnError != nil {
		p.OnError(err)
	}
}

// SetDescription is a no-op; the GUI shows no stage text.
func (p *FuncProgress) SetDescription(desc string) {}

func (p *FuncProgress) emit(f float64) {
	if p.OnFraction != nil {
		p.OnFraction(f)
	}
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(total int64, description string) {}

// Update does nothing.
func (p *NoOpProgress) Update(current int64) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}

// SetDescription does nothing.
func (p *NoOpProgress) SetDescription(desc string) {}
