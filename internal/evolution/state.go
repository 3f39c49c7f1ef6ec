package evolution

import (
	"encoding/json"
	"fmt"

	"github.com/harrison/autopilot/internal/filelock"
)

// StateStore persists engine state between processes.
type StateStore interface {
	// Load returns the stored state, or nil when nothing has been stored.
	Load() (*State, error)
	// Update applies fn to the current stored state (nil when empty) and
	// stores the result. Nothing is stored if fn fails.
	Update(fn func(current *State) (*State, error)) error
}

// FileStateStore keeps state as JSON in one file guarded by a sidecar flock.
type FileStateStore struct {
	path string
}

// NewFileStateStore creates a store writing to path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Path returns the state file location.
func (fs *FileStateStore) Path() string {
	return fs.path
}

// Load reads the state file under a shared lock.
func (fs *FileStateStore) Load() (*State, error) {
	data, err := filelock.ReadShared(fs.path)
	if err != nil {
		return nil, err
	}
	return decodeState(data, fs.path)
}

// Update performs a locked read-modify-write of the state file.
func (fs *FileStateStore) Update(fn func(current *State) (*State, error)) error {
	return filelock.Update(fs.path, func(current []byte) ([]byte, error) {
		st, err := decodeState(current, fs.path)
		if err != nil {
			return nil, err
		}
		next, err := fn(st)
		if err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode strategy state: %w", err)
		}
		return append(data, '\n'), nil
	})
}

func decodeState(data []byte, path string) (*State, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode strategy state %s: %w", path, err)
	}
	if st.Strategy == nil {
		return nil, nil
	}
	return &st, nil
}
