// Package workspace manages the shared filesystem areas where agents
// publish task artifacts for review by other agents.
package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactMeta describes who produced an artifact and whether it still
// needs a review pass.
type ArtifactMeta struct {
	Name           string    `json:"name"`
	Author         string    `json:"author"`
	TaskID         string    `json:"task_id,omitempty"`
	ReviewRequired bool      `json:"review_required"`
	CreatedAt      time.Time `json:"created_at"`
}

const metaSuffix = ".meta.json"

// Manager owns shared areas under a root directory, one per objective.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates the root directory if needed.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Manager{root: root, logger: logger}, nil
}

// Create makes the shared area for an objective and returns its path.
// Creating an existing area is a no-op.
func (m *Manager) Create(objectiveID string) (string, error) {
	area := m.AreaPath(objectiveID)
	if err := os.MkdirAll(area, 0o755); err != nil {
		return "", fmt.Errorf("create shared area: %w", err)
	}
	m.logger.Debug("shared area ready", "objective", objectiveID, "path", area)
	return area, nil
}

// AreaPath returns the shared area path for an objective without
// creating it.
func (m *Manager) AreaPath(objectiveID string) string {
	return filepath.Join(m.root, objectiveID)
}

// StoreArtifact writes an artifact and its metadata sidecar into the
// objective's shared area.
func (m *Manager) StoreArtifact(objectiveID string, meta ArtifactMeta, data []byte) error {
	if meta.Name == "" {
		return fmt.Errorf("artifact name required")
	}
	if strings.Contains(meta.Name, "/") || strings.Contains(meta.Name, "..") {
		return fmt.Errorf("artifact name %q must not contain path elements", meta.Name)
	}

	area, err := m.Create(objectiveID)
	if err != nil {
		return err
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	if err := os.WriteFile(filepath.Join(area, meta.Name), data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", meta.Name, err)
	}

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(area, meta.Name+metaSuffix), encoded, 0o644); err != nil {
		return fmt.Errorf("write artifact meta %s: %w", meta.Name, err)
	}

	m.logger.Debug("artifact stored",
		"objective", objectiveID,
		"artifact", meta.Name,
		"author", meta.Author,
		"review_required", meta.ReviewRequired)
	return nil
}

// ReadArtifact returns the artifact data and its metadata.
func (m *Manager) ReadArtifact(objectiveID, name string) ([]byte, *ArtifactMeta, error) {
	area := m.AreaPath(objectiveID)

	data, err := os.ReadFile(filepath.Join(area, name))
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	encoded, err := os.ReadFile(filepath.Join(area, name+metaSuffix))
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact meta %s: %w", name, err)
	}
	var meta ArtifactMeta
	if err := json.Unmarshal(encoded, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode artifact meta %s: %w", name, err)
	}
	return data, &meta, nil
}

// ListArtifacts returns metadata for every artifact in the objective's
// shared area, in directory order.
func (m *Manager) ListArtifacts(objectiveID string) ([]ArtifactMeta, error) {
	area := m.AreaPath(objectiveID)

	entries, err := os.ReadDir(area)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list shared area: %w", err)
	}

	var metas []ArtifactMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		encoded, err := os.ReadFile(filepath.Join(area, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var meta ArtifactMeta
		if err := json.Unmarshal(encoded, &meta); err != nil {
			m.logger.Warn("skipping unreadable artifact meta", "file", entry.Name(), "error", err)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// PendingReview returns artifacts in the area that still require review.
func (m *Manager) PendingReview(objectiveID string) ([]ArtifactMeta, error) {
	metas, err := m.ListArtifacts(objectiveID)
	if err != nil {
		return nil, err
	}
	var pending []ArtifactMeta
	for _, meta := range metas {
		if meta.ReviewRequired {
			pending = append(pending, meta)
		}
	}
	return pending, nil
}

// MarkReviewed clears the review flag on an artifact.
func (m *Manager) MarkReviewed(objectiveID, name string) error {
	_, meta, err := m.ReadArtifact(objectiveID, name)
	if err != nil {
		return err
	}
	meta.ReviewRequired = false

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact meta: %w", err)
	}
	path := filepath.Join(m.AreaPath(objectiveID), name+metaSuffix)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write artifact meta %s: %w", name, err)
	}
	return nil
}
