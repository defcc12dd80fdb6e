// Package logfields centralizes structured log field names so keys do not
// drift between packages.
package logfields

import "log/slog"

// Canonical log field name constants.
const (
	KeyPackage     = "package"
	KeyVersion     = "version"
	KeyFingerprint = "fingerprint"
	KeyPlatform    = "platform"
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyCheck       = "check"
	KeyPath        = "path"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Package(name string) slog.Attr    { return slog.String(KeyPackage, name) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func Fingerprint(fp string) slog.Attr  { return slog.String(KeyFingerprint, fp) }
func Platform(p string) slog.Attr      { return slog.String(KeyPlatform, p) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Check(name string) slog.Attr      { return slog.String(KeyCheck, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
