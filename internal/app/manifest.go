package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/DigitalPiranesi/scalarpull/internal/harvest"
)

// runManifest is the sidecar JSON record written next to the artifact. It
// captures what was pulled and from where, so a finished artifact can be
// traced back to its run.
type runManifest struct {
	Endpoint    string        `json:"endpoint"`
	UpperBound  int           `json:"upper_bound"`
	Step        int           `json:"step"`
	WindowSize  int           `json:"window_size"`
	Artifact    string        `json:"artifact"`
	SHA256      string        `json:"sha256"`
	Stats       harvest.Stats `json:"stats"`
	HTTPCache   bool          `json:"http_cache"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// manifestSidecarPath derives the sidecar location from the artifact path.
func manifestSidecarPath(artifactPath string) string {
	return artifactPath + ".manifest.json"
}

// fileSHA256 returns the lowercase hex digest of a file's contents.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeManifest marshals the manifest and writes it beside the artifact.
func writeManifest(artifactPath string, m runManifest) error {
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestSidecarPath(artifactPath), data, 0o644)
}
