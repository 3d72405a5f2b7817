package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rodneyosodo/fedcollab/pkg/model"
)

// FileStore writes checkpoints and the experiment export as JSON files under
// a results directory, one subdirectory for models.
type FileStore struct {
	resultsDir string
	modelsDir  string
}

// NewFileStore creates the results layout on disk.
func NewFileStore(resultsDir string) (*FileStore, error) {
	modelsDir := filepath.Join(resultsDir, "saved_models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}

	return &FileStore{
		resultsDir: resultsDir,
		modelsDir:  modelsDir,
	}, nil
}

func (fs *FileStore) SaveCheckpoint(version int, repr model.Representation) error {
	file := filepath.Join(fs.modelsDir, fmt.Sprintf("model_v%d.json", version))
	data, err := json.MarshalIndent(repr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	return nil
}

func (fs *FileStore) LoadCheckpoint(version int) (model.Representation, error) {
	file := filepath.Join(fs.modelsDir, fmt.Sprintf("model_v%d.json", version))
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var repr model.Representation
	if err := json.Unmarshal(data, &repr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return repr, nil
}

func (fs *FileStore) SaveExperiment(stats any) error {
	file := filepath.Join(fs.resultsDir, "experiment_stats.json")
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal experiment stats: %w", err)
	}

	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write experiment stats: %w", err)
	}

	return nil
}
