package cpd

import (
	"fmt"
	"os"
)

// Invocation is one assembled run of the detector.
type Invocation struct {
	Binary     string
	Output     string // unique temp file the PMD report is written to
	Exclusions Exclusions
	Target     string
}

// NewInvocation allocates a fresh report file and assembles the command.
// The caller owns the file and must call Cleanup.
func NewInvocation(binary string, ex Exclusions, target string) (Invocation, error) {
	f, err := os.CreateTemp("", PluginName+"_*")
	if err != nil {
		return Invocation{}, fmt.Errorf("creating report file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return Invocation{}, fmt.Errorf("closing report file: %w", err)
	}
	return Invocation{
		Binary:     binary,
		Output:     name,
		Exclusions: ex,
		Target:     target,
	}, nil
}

// Args returns the detector's argv. The target directory is always last.
func (inv Invocation) Args() []string {
	args := []string{"--log-pmd", inv.Output}
	args = append(args, inv.Exclusions.Args()...)
	return append(args, inv.Target)
}

// Cleanup removes the report file. Removing an already-missing file is not an error.
func (inv Invocation) Cleanup() error {
	if inv.Output == "" {
		return nil
	}
	if err := os.Remove(inv.Output); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
