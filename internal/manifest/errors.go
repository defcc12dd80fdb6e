package manifest

import "fmt"

// NotFoundError indicates the project directory has no recognizable manifest.
type NotFoundError struct{ Dir string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found in %s", FileName, e.Dir)
}

// ParseError indicates the manifest exists but could not be read or is malformed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("invalid manifest %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
