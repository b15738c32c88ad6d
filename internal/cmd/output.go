package cmd

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/nospawn/internal/db"
	"github.com/charmbracelet/nospawn/internal/probe"
	"github.com/charmbracelet/nospawn/internal/sandbox"
	"github.com/charmbracelet/x/exp/charmtone"
	"github.com/tidwall/sjson"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(charmtone.Guac).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(charmtone.Sriracha).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(charmtone.Squid)
	titleStyle = lipgloss.NewStyle().Foreground(charmtone.Charple).Bold(true)
)

func printResult(w io.Writer, r sandbox.Result) {
	if r.Success {
		lipgloss.Fprintln(w, okStyle.Render("✓")+" "+r.String())
		return
	}
	lipgloss.Fprintln(w, failStyle.Render("✗")+" "+r.String())
}

func resultJSON(r sandbox.Result) string {
	out, _ := sjson.Set("", "success", r.Success)
	out, _ = sjson.Set(out, "message", r.Message)
	out, _ = sjson.Set(out, "mechanism", r.Mechanism)
	out, _ = sjson.Set(out, "platform", sandbox.Platform())
	return out
}

func printProbeResults(w io.Writer, results []probe.Result) {
	for _, r := range results {
		status := okStyle.Render("PASS")
		if !r.Passed {
			status = failStyle.Render("FAIL")
		}
		lipgloss.Fprintf(w, "%s %s %s\n", status, r.Probe.Name, mutedStyle.Render(r.Probe.Description))
		if !r.Passed {
			lipgloss.Fprintf(w, "     %s\n", r.Detail)
		}
	}
}

// probeResultsJSON renders probe results. r is nil when activation was
// skipped.
func probeResultsJSON(r *sandbox.Result, results []probe.Result) string {
	out, _ := sjson.SetRaw("", "probes", "[]")
	if r != nil {
		out, _ = sjson.SetRaw(out, "activation", resultJSON(*r))
	}
	for _, res := range results {
		item, _ := sjson.Set("", "name", res.Probe.Name)
		item, _ = sjson.Set(item, "category", res.Probe.Category)
		item, _ = sjson.Set(item, "passed", res.Passed)
		if !res.Passed {
			item, _ = sjson.Set(item, "detail", res.Detail)
		}
		out, _ = sjson.SetRaw(out, "probes.-1", item)
	}
	return out
}

func printHistory(w io.Writer, items []db.Activation) {
	if len(items) == 0 {
		lipgloss.Fprintln(w, mutedStyle.Render("No activations recorded."))
		return
	}
	for _, a := range items {
		status := okStyle.Render(a.Mechanism)
		if !a.Success {
			status = failStyle.Render(a.Message)
		}
		lipgloss.Fprintf(w, "%s  %s  pid %d  %s\n",
			mutedStyle.Render(a.CreatedAt.Format("2006-01-02 15:04:05")),
			titleStyle.Render(a.Platform),
			a.PID,
			status,
		)
	}
}

func historyJSON(items []db.Activation) string {
	out := "[]"
	for _, a := range items {
		item, _ := sjson.Set("", "id", a.ID)
		item, _ = sjson.Set(item, "pid", a.PID)
		item, _ = sjson.Set(item, "platform", a.Platform)
		item, _ = sjson.Set(item, "success", a.Success)
		item, _ = sjson.Set(item, "mechanism", a.Mechanism)
		item, _ = sjson.Set(item, "message", a.Message)
		item, _ = sjson.Set(item, "filter_fingerprint", a.FilterFingerprint)
		item, _ = sjson.Set(item, "created_at", a.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
		out, _ = sjson.SetRaw(out, "-1", item)
	}
	return out
}

func printTitle(w io.Writer, format string, args ...any) {
	lipgloss.Fprintln(w, titleStyle.Render(fmt.Sprintf(format, args...)))
}
