package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"emmakit/pkg/logger"
)

// currentVersion is bumped whenever the file layout changes
const currentVersion = 1

// Checkpoint is the resumable state of one follow-network harvest
type Checkpoint struct {
	RunID          string         `json:"run_id"`
	Seeds          []string       `json:"seeds"`
	CompletedSeeds map[int64]bool `json:"completed_seeds"`
	FailedSeeds    map[int64]bool `json:"failed_seeds,omitempty"`
	EdgeCount      int            `json:"edge_count"`
	EdgeLog        string         `json:"edge_log,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int            `json:"version"`
}

// IsCompleted reports whether seed was fully harvested
func (c *Checkpoint) IsCompleted(seed int64) bool {
	return c.CompletedSeeds[seed]
}

// Manager reads and writes one checkpoint file
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a manager for the checkpoint called name inside dir.
// An empty dir selects the per-user data directory.
func NewManager(dir, name string, log logger.Logger) (*Manager, error) {
	if name == "" {
		return nil, fmt.Errorf("checkpoint name is required")
	}
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "checkpoints")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", name)),
		logger:         logger.OrGlobal(log),
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts and saves a fresh checkpoint
func (m *Manager) Create(runID string, seeds []string, edgeLog string) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		RunID:          runID,
		Seeds:          append([]string(nil), seeds...),
		CompletedSeeds: make(map[int64]bool),
		FailedSeeds:    make(map[int64]bool),
		EdgeLog:        edgeLog,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        currentVersion,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"run_id": runID,
		"seeds":  len(seeds),
		"path":   m.checkpointPath,
	})

	return checkpoint, nil
}

// Load reads the checkpoint; it returns nil, nil when none exists
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > currentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, currentVersion)
	}
	if checkpoint.CompletedSeeds == nil {
		checkpoint.CompletedSeeds = make(map[int64]bool)
	}
	if checkpoint.FailedSeeds == nil {
		checkpoint.FailedSeeds = make(map[int64]bool)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"run_id":     checkpoint.RunID,
		"completed":  len(checkpoint.CompletedSeeds),
		"edge_count": checkpoint.EdgeCount,
		"updated_at": checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save writes the checkpoint atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"run_id":     checkpoint.RunID,
		"completed":  len(checkpoint.CompletedSeeds),
		"edge_count": checkpoint.EdgeCount,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordSeed marks seed as harvested with edges new edges and saves
func (m *Manager) RecordSeed(checkpoint *Checkpoint, seed int64, edges int) error {
	checkpoint.CompletedSeeds[seed] = true
	delete(checkpoint.FailedSeeds, seed)
	checkpoint.EdgeCount += edges
	return m.Save(checkpoint)
}

// RecordFailure marks seed as failed so a resumed run retries it
func (m *Manager) RecordFailure(checkpoint *Checkpoint, seed int64) error {
	if checkpoint.FailedSeeds == nil {
		checkpoint.FailedSeeds = make(map[int64]bool)
	}
	checkpoint.FailedSeeds[seed] = true
	return m.Save(checkpoint)
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "emmakit")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "emmakit")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "emmakit")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "emmakit")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
