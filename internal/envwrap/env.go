// Package envwrap derives the environment a built artifact needs at launch
// from the manifest's declared native runtime inputs, and applies it to child
// processes. The derivation is one pure function shared by the launch wrapper
// and the dev shell, so the two can never drift.
package envwrap

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/cachebuild/internal/manifest"
)

// Well-known variables with search-path semantics. When applied over an
// inherited environment, declared values are prepended rather than replacing
// what the parent process already had.
const (
	LibraryPathVar = "LD_LIBRARY_PATH"
	PathVar        = "PATH"
)

// EnvVar is one resolved environment variable.
type EnvVar struct {
	Name  string
	Value string
}

// Compute derives the Environment Variable Set from the declared runtime
// inputs. It is a pure function: same inputs, byte-identical output. Order is
// fixed: library path, bin path, then extra variables sorted by name.
func Compute(rt manifest.Runtime) []EnvVar {
	var vars []EnvVar
	if len(rt.LibraryDirs) > 0 {
		vars = append(vars, EnvVar{Name: LibraryPathVar, Value: strings.Join(rt.LibraryDirs, ":")})
	}
	if len(rt.BinDirs) > 0 {
		vars = append(vars, EnvVar{Name: PathVar, Value: strings.Join(rt.BinDirs, ":")})
	}

	extra := make([]string, 0, len(rt.Env))
	for name := range rt.Env {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		vars = append(vars, EnvVar{Name: name, Value: rt.Env[name]})
	}
	return vars
}

// Apply merges the variable set into a base environment (os.Environ form).
// Path-like variables are prepended to any inherited value; everything else
// replaces it.
func Apply(vars []EnvVar, base []string) []string {
	env := make([]string, len(base))
	copy(env, base)

	for _, v := range vars {
		value := v.Value
		idx := indexOf(env, v.Name)
		if idx >= 0 {
			if isPathLike(v.Name) {
				if inherited := env[idx][len(v.Name)+1:]; inherited != "" {
					value = value + ":" + inherited
				}
			}
			env[idx] = v.Name + "=" + value
			continue
		}
		env = append(env, v.Name+"="+value)
	}
	return env
}

func isPathLike(name string) bool {
	return name == LibraryPathVar || name == PathVar
}

func indexOf(env []string, name string) int {
	prefix := name + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return i
		}
	}
	return -1
}
