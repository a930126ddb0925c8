package unlock

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"community-milestones/utils"
)

const stateVersion = 1

// State is the local unlock cache. Unlocked keeps first-unlock order.
type State struct {
	Version    int      `json:"version"`
	Unlocked   []string `json:"unlocked"`
	ExternalID string   `json:"externalId,omitempty"`
}

// Has reports whether id is in the unlock set.
func (s State) Has(id string) bool {
	return slices.Contains(s.Unlocked, id)
}

// Union appends ids not yet present, preserving existing order.
// Returns true when anything was added.
func (s *State) Union(ids ...string) bool {
	added := false
	for _, id := range ids {
		if id == "" || s.Has(id) {
			continue
		}
		s.Unlocked = append(s.Unlocked, id)
		added = true
	}
	return added
}

func (s State) clone() State {
	s.Unlocked = slices.Clone(s.Unlocked)
	return s
}

// LocalStore is the browser-local storage cell shared by every component.
type LocalStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps the cache as a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := utils.ReadFileIfExists(f.path)
	if err != nil {
		return State{Version: stateVersion}, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return State{Version: stateVersion}, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{Version: stateVersion}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	st.Version = stateVersion
	return st, nil
}

func (f *FileStore) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st.Version = stateVersion
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := utils.WriteFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// MemoryStore is a process-local store, used when no cache path is configured.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: State{Version: stateVersion}}
}

func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

func (m *MemoryStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.Version = stateVersion
	m.state = st.clone()
	return nil
}
