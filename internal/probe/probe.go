// Package probe attempts the escapes an activated sandbox must block.
//
// A probe that returns nil was blocked (or, for control probes, behaved
// normally). A non-nil error describes how the escape succeeded.
package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// Categories.
const (
	CategoryProcess = "process"
	CategoryFilter  = "filter"
	CategoryControl = "control"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 10 * time.Second

// Probe is a single escape attempt.
type Probe struct {
	Name        string
	Description string
	Category    string
	Run         func(ctx context.Context) error
}

// Result is the outcome of running a probe.
type Result struct {
	Probe  *Probe
	Passed bool   // True if the escape was blocked.
	Detail string // How the escape succeeded, when it did.
}

// Target is the program spawn probes try to start.
type Target struct {
	Path string
	Args []string
}

// SelfTarget returns a Target that re-runs the current executable.
func SelfTarget(args ...string) (Target, error) {
	path, err := os.Executable()
	if err != nil {
		return Target{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	return Target{Path: path, Args: args}, nil
}

// Battery returns every probe that applies to this platform.
func Battery(target Target) []Probe {
	probes := []Probe{
		execProbe(target),
		shellProbe(target),
		luaProbe(),
	}
	probes = append(probes, platformProbes()...)
	return append(probes, controlProbes()...)
}

// Runner runs a set of probes.
type Runner struct {
	probes  []Probe
	timeout time.Duration
	results []Result
}

// NewRunner creates a runner for probes.
func NewRunner(probes []Probe) *Runner {
	return &Runner{probes: probes, timeout: DefaultTimeout}
}

// RunAll runs every probe concurrently and returns results in probe order.
func (r *Runner) RunAll(ctx context.Context) []Result {
	r.results = make([]Result, len(r.probes))

	var g errgroup.Group
	for i := range r.probes {
		p := &r.probes[i]
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			r.results[i] = Result{Probe: p, Passed: true}
			if err := p.Run(pctx); err != nil {
				r.results[i].Passed = false
				r.results[i].Detail = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return r.results
}

// Summary counts passed and failed results.
func (r *Runner) Summary() (passed, failed int) {
	for _, result := range r.results {
		if result.Passed {
			passed++
		} else {
			failed++
		}
	}
	return
}

// HasFailures reports whether any escape succeeded.
func (r *Runner) HasFailures() bool {
	_, failed := r.Summary()
	return failed > 0
}

// PrintResults writes a plain text report to w.
func (r *Runner) PrintResults(w io.Writer) {
	for _, result := range r.results {
		status := "[PASS]"
		if !result.Passed {
			status = "[FAIL]"
		}
		fmt.Fprintf(w, "%s %s: %s\n", status, result.Probe.Name, result.Probe.Description)
		if !result.Passed {
			fmt.Fprintf(w, "       %s\n", result.Detail)
		}
	}

	passed, failed := r.Summary()
	fmt.Fprintf(w, "\n%d/%d probes passed", passed, passed+failed)
	if failed == 0 {
		fmt.Fprintln(w, ", process creation is contained")
	} else {
		fmt.Fprintf(w, ", %d escapes succeeded\n", failed)
	}
}
