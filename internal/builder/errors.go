package builder

import "fmt"

// MismatchError reports a dependency cache entry whose identity does not
// match the current manifest. This is a configuration error: the build is
// rejected rather than silently using an unrelated cache.
type MismatchError struct {
	Want  string
	Got   string
	Field string // "fingerprint" when empty
}

func (e *MismatchError) Error() string {
	field := e.Field
	if field == "" {
		field = "fingerprint"
	}
	return fmt.Sprintf("cache entry %s mismatch: manifest has %s, entry has %s", field, e.Want, e.Got)
}

// CompileError reports a failed compilation of the project's own source. The
// dependency cache entry is unaffected.
type CompileError struct {
	Package string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s: %v", e.Package, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
