package cpd

import (
	"os"
	"path/filepath"
	"strings"
)

// Exclusions are the tool arguments derived from a set of ignore rules.
// Every rule lands in exactly one of Dirs or Names.
type Exclusions struct {
	Dirs  []string // one --exclude flag each
	Names []string // base file names, joined into a single --names-exclude flag
}

// ResolveExclusions classifies each rule by probing dir/rule on disk now:
// a regular file contributes its base name to Names, anything else
// (directory, missing path, special file) is excluded as a path.
// Order and duplicates are preserved.
func ResolveExclusions(dir string, rules []string) Exclusions {
	var ex Exclusions
	for _, rule := range rules {
		rule = strings.TrimRight(rule, "/"+string(filepath.Separator))
		if isRegularFile(filepath.Join(dir, rule)) {
			ex.Names = append(ex.Names, filepath.Base(rule))
			continue
		}
		ex.Dirs = append(ex.Dirs, rule)
	}
	return ex
}

// Args renders the exclusions as tool flags. No rules, no flags.
func (ex Exclusions) Args() []string {
	args := make([]string, 0, 2*len(ex.Dirs)+2)
	for _, d := range ex.Dirs {
		args = append(args, "--exclude", d)
	}
	if len(ex.Names) > 0 {
		args = append(args, "--names-exclude", strings.Join(ex.Names, ","))
	}
	return args
}

// String is the space-joined form of Args, used in logs.
func (ex Exclusions) String() string {
	return strings.Join(ex.Args(), " ")
}

// Len is the number of rules the exclusions were built from.
func (ex Exclusions) Len() int {
	return len(ex.Dirs) + len(ex.Names)
}

func isRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
