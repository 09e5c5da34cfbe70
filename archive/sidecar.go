package archive

import (
	"encoding/json"
	"os"
	"strings"
)

// Manifest is the JSON sidecar written next to an archive. Notebooks and
// other non-Go consumers use it to resolve identifiers without parsing the
// binary format.
type Manifest struct {
	ModelName   string   `json:"model_name"`
	Dimension   int      `json:"embedding_dim"`
	Count       int      `json:"num_images"`
	Identifiers []string `json:"filenames"`
}

// SidecarPath returns the manifest path for an archive path, replacing the
// extension with ".json".
func SidecarPath(archivePath string) string {
	if i := strings.LastIndex(archivePath, "."); i > strings.LastIndexAny(archivePath, `/\`) {
		return archivePath[:i] + ".json"
	}
	return archivePath + ".json"
}

// WriteSidecar writes the manifest as indented JSON to path.
func WriteSidecar(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSidecar reads a manifest from path.
func ReadSidecar(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
