package cpd

import (
	"context"
	"fmt"
	"regexp"

	masterminds "github.com/Masterminds/semver/v3"
)

// versionRe finds the first N.N.N token in `phpcpd --version` output.
var versionRe = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// checkVersion compares the installed tool against constraint. A mismatch
// or an unreadable version is reported as a warning; the stage still runs.
func (s *Stage) checkVersion(ctx context.Context, constraint string) {
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		s.builder.Log.LogWarning(fmt.Sprintf("%s: invalid version constraint %q: %v", PluginName, constraint, err))
		return
	}

	out, err := s.builder.CommandOutput(ctx, s.executable, "--version")
	if err != nil {
		s.builder.Log.LogWarning(fmt.Sprintf("%s: could not read tool version: %v", PluginName, err))
		return
	}

	m := versionRe.FindStringSubmatch(out)
	if m == nil {
		s.builder.Log.LogWarning(fmt.Sprintf("%s: no version in %q", PluginName, out))
		return
	}
	v, err := masterminds.NewVersion(m[1])
	if err != nil {
		s.builder.Log.LogWarning(fmt.Sprintf("%s: unparsable version %q: %v", PluginName, m[1], err))
		return
	}

	s.builder.Log.LogDebug(fmt.Sprintf("%s version: %s", PluginName, v))
	if !c.Check(v) {
		s.builder.Log.LogWarning(fmt.Sprintf("%s: installed version %s does not satisfy %q", PluginName, v, constraint))
	}
}
