package server

import (
	"sync"

	"github.com/teranos/graphex/selection"
)

// Mounts tracks the one surface mount that is current. It implements
// selection.Surface and is safe for concurrent use.
type Mounts struct {
	mu      sync.Mutex
	current *Mount
	// version is the newest document version passed to closeStale.
	version uint64
}

// NewMounts returns an empty registry.
func NewMounts() *Mounts {
	return &Mounts{}
}

// Current returns the mounted channel, or nil when nothing is mounted.
func (ms *Mounts) Current() selection.Channel {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.current == nil {
		return nil
	}
	return ms.current
}

// attachCurrent makes m current. The mount it supersedes is closed and
// returned. A mount older than the last version passed to closeStale is
// closed and refused instead, so a page cannot slip in after the change that
// should have closed it.
func (ms *Mounts) attachCurrent(m *Mount) (prev *Mount, ok bool) {
	ms.mu.Lock()
	if m.version < ms.version {
		ms.mu.Unlock()
		m.Close()
		return nil, false
	}
	prev = ms.current
	ms.current = m
	ms.mu.Unlock()

	if prev != nil && prev != m {
		prev.Close()
		return prev, true
	}
	return nil, true
}

// detach forgets m if it is still current.
func (ms *Mounts) detach(m *Mount) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.current != m {
		return false
	}
	ms.current = nil
	return true
}

// closeStale records version as the newest document and closes the current
// mount when it shows any other version.
func (ms *Mounts) closeStale(version uint64) *Mount {
	ms.mu.Lock()
	if version > ms.version {
		ms.version = version
	}
	m := ms.current
	if m == nil || m.version == version {
		ms.mu.Unlock()
		return nil
	}
	ms.current = nil
	ms.mu.Unlock()

	m.Close()
	return m
}
