// Package builder compiles the project's own source against a materialized
// dependency cache entry and produces the final executable artifact.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/cachebuild/internal/depcache"
	"git.home.luguber.info/inful/cachebuild/internal/logfields"
	"git.home.luguber.info/inful/cachebuild/internal/manifest"
	"git.home.luguber.info/inful/cachebuild/internal/metrics"
	"git.home.luguber.info/inful/cachebuild/internal/sourcetree"
	"git.home.luguber.info/inful/cachebuild/internal/toolchain"
	"github.com/google/uuid"
)

// BuildInfoFileName is written next to the artifact after a successful build.
const BuildInfoFileName = "buildinfo.json"

// Builder produces built artifacts under a namespaced output directory.
type Builder struct {
	tc     toolchain.Toolchain
	outDir string
	rec    metrics.Recorder
}

// New creates a Builder writing artifacts under outDir/<platform>/.
func New(tc toolchain.Toolchain, outDir string, rec metrics.Recorder) *Builder {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Builder{tc: tc, outDir: outDir, rec: rec}
}

// Artifact is the successful output of one build invocation.
type Artifact struct {
	// Path is the executable, named after the package's declared name.
	Path string
	Info BuildInfo
}

// BuildInfo records what went into an artifact.
type BuildInfo struct {
	BuildID     string    `json:"build_id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	Platform    string    `json:"platform"`
	Commit      string    `json:"commit,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Build compiles the snapshot against the cache entry. The entry's
// fingerprint must equal the manifest's; a mismatch is a configuration error
// and is rejected before any compilation. The cache entry is never mutated.
func (b *Builder) Build(ctx context.Context, snap *sourcetree.Snapshot, m *manifest.Manifest, entry *depcache.Entry, platform string) (*Artifact, error) {
	fp, err := m.Fingerprint()
	if err != nil {
		return nil, err
	}
	if entry.Fingerprint != fp {
		return nil, &MismatchError{Want: fp, Got: entry.Fingerprint}
	}
	if entry.Platform != platform {
		return nil, &MismatchError{Want: platform, Got: entry.Platform, Field: "platform"}
	}

	buildID := uuid.NewString()
	outDir := filepath.Join(b.outDir, strings.ReplaceAll(platform, "/", "-"))
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outDir, m.Package.Name)

	slog.Info("Building package",
		logfields.Package(m.Package.Name),
		logfields.Version(m.Package.Version),
		logfields.Fingerprint(fp),
		logfields.Platform(platform),
		logfields.BuildID(buildID))

	start := time.Now()
	if err := b.tc.CompilePackage(ctx, snap.Dir, entry.Dir, outPath); err != nil {
		b.rec.IncBuildOutcome("failed")
		return nil, &CompileError{Package: m.Package.Name, Err: err}
	}
	duration := time.Since(start)
	b.rec.ObservePackageBuildDuration(duration)
	b.rec.IncBuildOutcome("success")

	info := BuildInfo{
		BuildID:     buildID,
		Name:        m.Package.Name,
		Version:     m.Package.Version,
		Fingerprint: fp,
		Platform:    platform,
		Commit:      snap.Commit,
		CreatedAt:   time.Now().UTC(),
		DurationMS:  duration.Milliseconds(),
	}
	if err := writeBuildInfo(filepath.Join(outDir, BuildInfoFileName), info); err != nil {
		slog.Warn("Failed to write build info", logfields.Error(err))
	}

	slog.Info("Package built",
		logfields.Package(m.Package.Name),
		logfields.Path(outPath),
		logfields.DurationMS(float64(duration.Milliseconds())))
	return &Artifact{Path: outPath, Info: info}, nil
}

func writeBuildInfo(path string, info BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
