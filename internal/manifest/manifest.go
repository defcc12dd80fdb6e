// Package manifest loads and validates the project manifest: package
// identity, the locked dependency graph, toolchain commands and native
// runtime inputs. The manifest is parsed exactly once per invocation; every
// downstream component receives the parsed struct and never re-reads the
// file.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the fixed manifest path relative to the project root.
const FileName = "package.yaml"

// Manifest is the authoritative description of the package to build.
type Manifest struct {
	Package      Package      `yaml:"package"`
	Dependencies []Dependency `yaml:"dependencies"`
	Toolchain    Toolchain    `yaml:"toolchain"`
	Runtime      Runtime      `yaml:"runtime"`
	Tools        []string     `yaml:"tools,omitempty"`
}

// Package identifies the package by name and version.
type Package struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Dependency is one locked entry of the dependency graph.
type Dependency struct {
	Name     string `yaml:"name" json:"name"`
	Version  string `yaml:"version" json:"version"`
	Checksum string `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

// Toolchain declares the external compiler and linter commands. Both are
// opaque collaborators; cachebuild only invokes them.
type Toolchain struct {
	Compiler string `yaml:"compiler"`
	Linter   string `yaml:"linter,omitempty"`
}

// Runtime declares the native inputs the built artifact needs at launch.
// Both the launch wrapper and the dev shell derive their environment from
// this one struct.
type Runtime struct {
	LibraryDirs []string          `yaml:"library_dirs,omitempty"`
	BinDirs     []string          `yaml:"bin_dirs,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
}

// Load reads and validates the manifest at <dir>/package.yaml.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Dir: dir}
		}
		return nil, &ParseError{Path: path, Err: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &m, nil
}

// Validate checks the invariants a build relies on.
func (m *Manifest) Validate() error {
	if m.Package.Name == "" {
		return fmt.Errorf("package.name is required")
	}
	if m.Package.Version == "" {
		return fmt.Errorf("package.version is required")
	}
	if m.Toolchain.Compiler == "" {
		return fmt.Errorf("toolchain.compiler is required")
	}
	seen := make(map[string]struct{}, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if dep.Name == "" || dep.Version == "" {
			return fmt.Errorf("dependency %q: name and version are required", dep)
		}
		key := dep.Name + "@" + dep.Version
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate locked dependency %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// HostPlatform returns the platform identifier of the running host,
// e.g. "linux/amd64". Cache entries are namespaced per platform.
func HostPlatform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
