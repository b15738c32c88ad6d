//go:build !linux

package probe

func platformProbes() []Probe {
	return nil
}
