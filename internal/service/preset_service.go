package service

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stickerlab/api/internal/model"
)

// PresetService loads the sticker preset library from disk. The file is
// re-read per request so the library can be edited without a restart.
type PresetService struct {
	path string
}

func NewPresetService(path string) *PresetService {
	return &PresetService{path: path}
}

// Load returns the full preset library in file order.
func (s *PresetService) Load() ([]model.Preset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var presets []model.Preset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	return presets, nil
}

// Select filters the library by index list, preserving library order. An
// empty selection means all presets. Out-of-range indices are an error so a
// stale front end cannot silently shrink a batch.
func (s *PresetService) Select(indices []int) ([]model.Preset, error) {
	all, err := s.Load()
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return all, nil
	}

	selected := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(all) {
			return nil, fmt.Errorf("preset index %d out of range (library has %d)", i, len(all))
		}
		selected[i] = true
	}

	var out []model.Preset
	for i, p := range all {
		if selected[i] {
			out = append(out, p)
		}
	}
	return out, nil
}
