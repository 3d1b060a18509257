// Package state records what a bake did: the context it used, so it can be
// replayed, and the paths it created, so they can be rolled back.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cpcf/kiln/vars"
)

const replayVersion = "1"

// ErrNoReplay is returned by Load when nothing was saved for a template.
var ErrNoReplay = errors.New("no replay recorded")

// Replay is the saved context of the last bake of a template.
type Replay struct {
	Version  string         `json:"version"`
	Template string         `json:"template"`
	BakeID   string         `json:"bake_id,omitempty"`
	Baked    time.Time      `json:"baked"`
	Keys     []string       `json:"keys"`
	Context  map[string]any `json:"context"`
}

// Vars rebuilds the context in its original key order.
func (r *Replay) Vars() vars.Context {
	return vars.NewContext(r.Context, r.Keys...)
}

// ReplayStore keeps one replay file per template under Dir.
type ReplayStore struct {
	Dir string
}

func NewReplayStore(dir string) *ReplayStore {
	return &ReplayStore{Dir: dir}
}

// Path returns the file a template's replay is stored in. Template
// references such as URLs or paths are reduced to their last element.
func (s *ReplayStore) Path(template string) string {
	return filepath.Join(s.Dir, replayName(template)+".json")
}

func replayName(template string) string {
	name := strings.TrimRight(template, "/\\")
	if i := strings.LastIndexAny(name, "/\\:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" || name == "." || name == ".." {
		name = "template"
	}
	return name
}

// Save writes ctx for template, replacing any earlier replay. The file is
// written to a temporary sibling and renamed into place.
func (s *ReplayStore) Save(template, bakeID string, ctx vars.Context) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create replay directory: %w", err)
	}

	replay := Replay{
		Version:  replayVersion,
		Template: template,
		BakeID:   bakeID,
		Baked:    time.Now().UTC(),
		Keys:     ctx.Keys(),
		Context:  ctx.Values(),
	}

	path := s.Path(template)
	file, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary replay file: %w", err)
	}
	tmpPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(replay); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode replay: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary replay file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move replay file: %w", err)
	}

	return nil
}

// Load returns the replay saved for template, or ErrNoReplay.
func (s *ReplayStore) Load(template string) (*Replay, error) {
	path := s.Path(template)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s", ErrNoReplay, template)
		}
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer file.Close()

	var replay Replay
	if err := json.NewDecoder(file).Decode(&replay); err != nil {
		return nil, fmt.Errorf("failed to decode replay %s: %w", path, err)
	}
	if replay.Version != replayVersion {
		return nil, fmt.Errorf("replay %s: unsupported version %q", path, replay.Version)
	}

	return &replay, nil
}
