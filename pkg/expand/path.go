package expand

import (
	"path/filepath"
	"strings"

	"github.com/Hanaasagi/shibuichi/pkg/ps1parser"
)

const separator = string(filepath.Separator)

// ResolvePath applies a %d{...} / %/{...} directive to the working directory.
//
// The first substitution whose prefix matches whole leading components of
// cwd replaces them with its alias. A positive argument N then keeps the
// last N components, a negative one the first -N. A single trailing
// separator is dropped unless the result is the root itself.
func ResolvePath(cwd string, p ps1parser.PathPrefix) string {
	wd := cwd
	for _, sub := range p.Substitutions {
		if rest, ok := stripPrefix(wd, sub.Prefix); ok {
			wd = filepath.Join(sub.Alias, rest)
			break
		}
	}

	switch n := p.Arg.Or(0); {
	case n > 0:
		comps := components(wd)
		if len(comps) > n {
			comps = comps[len(comps)-n:]
		}
		wd = joinComponents(comps)
	case n < 0:
		comps := components(wd)
		if len(comps) > -n {
			comps = comps[:-n]
		}
		wd = joinComponents(comps)
	}

	if wd != separator {
		wd = strings.TrimSuffix(wd, separator)
	}
	return wd
}

// components splits a path the way a shell user counts directories: the
// root of an absolute path is a component of its own.
func components(path string) []string {
	var comps []string
	if strings.HasPrefix(path, separator) {
		comps = append(comps, separator)
	}
	for _, part := range strings.Split(path, separator) {
		if part != "" && part != "." {
			comps = append(comps, part)
		}
	}
	return comps
}

func joinComponents(comps []string) string {
	if len(comps) > 0 && comps[0] == separator {
		return separator + strings.Join(comps[1:], separator)
	}
	return strings.Join(comps, separator)
}

// stripPrefix removes prefix from path when it matches whole components,
// so /home/user does not match /home/username.
func stripPrefix(path, prefix string) (string, bool) {
	pathComps := components(path)
	prefixComps := components(prefix)
	if len(prefixComps) == 0 || len(prefixComps) > len(pathComps) {
		return "", false
	}
	for i, comp := range prefixComps {
		if pathComps[i] != comp {
			return "", false
		}
	}
	return joinComponents(pathComps[len(prefixComps):]), true
}
