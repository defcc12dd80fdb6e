package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint computes a deterministic identifier for the locked dependency
// graph. It is a pure function of the sorted name/version/checksum tuples:
// project source content, timestamps and build options never feed into it.
// Two manifests with identical fingerprints may share a dependency cache
// entry; any difference in the graph yields a different fingerprint.
func (m *Manifest) Fingerprint() (string, error) {
	deps := make([]Dependency, len(m.Dependencies))
	copy(deps, m.Dependencies)
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].Version < deps[j].Version
	})

	data, err := json.Marshal(deps)
	if err != nil {
		return "", fmt.Errorf("marshal dependency graph: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
