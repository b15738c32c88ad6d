package probe

import (
	"context"
	"fmt"
	"os"
)

// controlProbes check that ordinary work still succeeds.
func controlProbes() []Probe {
	return []Probe{
		{
			Name:        "getpid",
			Description: "Query the process id",
			Category:    CategoryControl,
			Run: func(ctx context.Context) error {
				if os.Getpid() <= 0 {
					return fmt.Errorf("getpid returned %d", os.Getpid())
				}
				return nil
			},
		},
		{
			Name:        "tempfile",
			Description: "Create, write and remove a temporary file",
			Category:    CategoryControl,
			Run: func(ctx context.Context) error {
				f, err := os.CreateTemp("", "nospawn-probe-*")
				if err != nil {
					return fmt.Errorf("create temp file: %w", err)
				}
				defer os.Remove(f.Name())
				defer f.Close()

				if _, err := f.WriteString("probe"); err != nil {
					return fmt.Errorf("write temp file: %w", err)
				}
				return nil
			},
		},
	}
}
