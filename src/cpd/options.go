package cpd

import (
	"encoding/json"
	"fmt"
)

// Options configures the detector stage.
type Options struct {
	// Directory to scan, relative to the build path. Empty scans the build path.
	Directory string `json:"directory"`
	// Path is the deprecated spelling of Directory.
	Path string `json:"path"`
	// Ignore rules are merged after the pipeline-wide ignore list.
	// Nil means the option was not given.
	Ignore []string `json:"ignore"`
	// Binary overrides the tool name looked up on the build.
	Binary string `json:"binary"`
	// Version is a semver constraint the installed tool should satisfy.
	Version string `json:"version"`
}

// DecodeOptions converts raw stage options into Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return opts, fmt.Errorf("%s: marshal options: %w", PluginName, err)
	}
	if err := json.Unmarshal(b, &opts); err != nil {
		return opts, fmt.Errorf("%s: unmarshal options: %w", PluginName, err)
	}
	return opts, nil
}
