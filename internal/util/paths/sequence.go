// Package paths provides utilities for numbered file and directory names:
// refinement cycles ("Refine_3") and model versions ("fitted-v0004.pdb").
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Pattern names entries of the form Prefix + digits + Suffix.
type Pattern struct {
	Prefix string
	Suffix string
	// Width zero-pads the number when formatting, e.g. 4 for "0004".
	Width int
}

// Format returns the entry name for n.
func (p Pattern) Format(n int) string {
	return fmt.Sprintf("%s%0*d%s", p.Prefix, p.Width, n, p.Suffix)
}

// Parse returns the number in name, or false if name does not match.
func (p Pattern) Parse(name string) (int, bool) {
	if !strings.HasPrefix(name, p.Prefix) || !strings.HasSuffix(name, p.Suffix) {
		return 0, false
	}
	digits := name[len(p.Prefix) : len(name)-len(p.Suffix)]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Max returns the largest number among the entries of dir that match p.
// found is false when nothing matches or dir does not exist.
func (p Pattern) Max(dir string) (max int, found bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if n, ok := p.Parse(e.Name()); ok && (!found || n > max) {
			max, found = n, true
		}
	}
	return max, found, nil
}

// Next returns max+1 over the matching entries of dir, or min when there
// are none. The result is never below min.
func (p Pattern) Next(dir string, min int) (int, error) {
	max, found, err := p.Max(dir)
	if err != nil {
		return 0, err
	}
	if !found || max+1 < min {
		return min, nil
	}
	return max + 1, nil
}

// Allocator hands out numbered directories. Within a process, allocation
// is serialised by a mutex; across processes the directory creation is
// the claim, so two sessions on the same sample never share a number.
type Allocator struct {
	mu sync.Mutex
	// MaxAttempts bounds the retries after losing a race. Zero means 100.
	MaxAttempts int
}

// Claim creates the next numbered directory matching p under dir and
// returns its number and path. dir is created if needed.
func (a *Allocator) Claim(dir string, p Pattern, min int) (int, string, error) {
	return a.claim(dir, p, min, func(path string) error {
		return os.Mkdir(path, 0755)
	})
}

// ClaimFile is Claim for files: it creates the next numbered file empty,
// so callers writing it later cannot be handed the same number.
func (a *Allocator) ClaimFile(dir string, p Pattern, min int) (int, string, error) {
	return a.claim(dir, p, min, func(path string) error {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return err
		}
		return f.Close()
	})
}

func (a *Allocator) claim(dir string, p Pattern, min int, create func(string) error) (int, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	n, err := p.Next(dir, min)
	if err != nil {
		return 0, "", err
	}

	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = 100
	}
	for i := 0; i < attempts; i++ {
		path := filepath.Join(dir, p.Format(n))
		err := create(path)
		if err == nil {
			return n, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return 0, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		n++
	}
	return 0, "", fmt.Errorf("no free %s* entry in %s after %d attempts", p.Prefix, dir, attempts)
}
