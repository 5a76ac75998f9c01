package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/extsort/internal/compress"
)

// ErrChannelIO indicates an error of the underlying channel storage. Retry
// policy, if any, belongs to the storage provider, not to this layer.
var ErrChannelIO = errors.New("channel I/O failed")

// ChannelID uniquely identifies a spill channel. It doubles as the path of
// the backing file.
type ChannelID string

// Manager is the session-scoped registry of spill channels and their sole
// creation and deletion path. Every channel it creates is deleted exactly
// once: synchronously via CloseAndDelete on the regular path, or by CloseAll
// when a session terminates abnormally.
//
// Deletion failures are logged and never propagated; a failed removal must
// not abort an otherwise-successful merge.
type Manager struct {
	fs     FileSystem
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	channels map[ChannelID]struct{}
	seq      uint64
	created  bool
}

// NewManager creates a channel manager rooted at a fresh unique directory
// under baseDir. The directory is created lazily on first channel creation.
func NewManager(fsys FileSystem, baseDir string, logger *slog.Logger) *Manager {
	if fsys == nil {
		fsys = Default
	}
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		fs:       fsys,
		dir:      filepath.Join(baseDir, "extsort-"+uuid.NewString()),
		logger:   logger,
		channels: make(map[ChannelID]struct{}),
	}
}

// Dir returns the session temp directory.
func (m *Manager) Dir() string { return m.dir }

// CreateChannel allocates and registers a fresh uniquely-named channel.
func (m *Manager) CreateChannel() (ChannelID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		if err := m.fs.MkdirAll(m.dir, 0o750); err != nil {
			return "", fmt.Errorf("%w: create temp dir %s: %w", ErrChannelIO, m.dir, err)
		}
		m.created = true
	}

	m.seq++
	id := ChannelID(filepath.Join(m.dir, fmt.Sprintf("channel-%06d.tmp", m.seq)))
	m.channels[id] = struct{}{}
	return id, nil
}

// CloseAndDelete removes the channel from the registry and deletes its
// backing file best-effort. Calling it twice for the same id is a no-op.
func (m *Manager) CloseAndDelete(id ChannelID) {
	m.mu.Lock()
	_, tracked := m.channels[id]
	delete(m.channels, id)
	m.mu.Unlock()

	if !tracked {
		return
	}
	if err := m.fs.Remove(string(id)); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("spill channel delete failed", "channel", string(id), "error", err)
	}
}

// CloseAll deletes every remaining registered channel exactly once and
// removes the session directory. Safe to call multiple times and from a
// goroutine other than the one driving the merge.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	remaining := make([]ChannelID, 0, len(m.channels))
	for id := range m.channels {
		remaining = append(remaining, id)
	}
	m.channels = make(map[ChannelID]struct{})
	created := m.created
	m.mu.Unlock()

	for _, id := range remaining {
		if err := m.fs.Remove(string(id)); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("spill channel delete failed", "channel", string(id), "error", err)
		}
	}
	if created {
		if err := m.fs.Remove(m.dir); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("spill dir delete failed", "dir", m.dir, "error", err)
		}
	}
}

// Count returns the number of channels currently registered.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// OpenOutput opens the write-phase view of a channel. pageSize is the logical
// page size; with compression enabled each full page becomes one framed block.
func (m *Manager) OpenOutput(id ChannelID, pageSize int, typ compress.Type) (*OutputView, error) {
	c, err := compress.NewCompressor(typ)
	if err != nil {
		return nil, err
	}
	f, err := m.fs.OpenFile(string(id), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open channel %s for write: %w", ErrChannelIO, id, err)
	}
	return newOutputView(f, pageSize, c), nil
}

// OpenInput opens the read-phase view of a sealed channel. pageSize and typ
// must match the values the channel was written with.
func (m *Manager) OpenInput(id ChannelID, pageSize int, typ compress.Type) (*InputView, error) {
	d, err := compress.NewDecompressor(typ)
	if err != nil {
		return nil, err
	}
	f, err := m.fs.OpenFile(string(id), os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open channel %s for read: %w", ErrChannelIO, id, err)
	}
	return newInputView(f, pageSize, d), nil
}
