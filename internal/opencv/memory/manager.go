package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"protonfusion/internal/logger"
	"protonfusion/internal/opencv/safe"
)

// DefaultLimit caps the native memory held by live Mats.
const DefaultLimit = 2 * 1024 * 1024 * 1024

// Manager accounts for every Mat the codec creates and reports Mats that
// outlive a request.
type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
	cancel       context.CancelFunc
	done         chan struct{}
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

func NewManager(log logger.Logger, limit int64) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		logger:     log,
		maxMemory:  limit,
		activeMats: make(map[uint64]*MatInfo),
	}
}

// Start runs the periodic statistics check until ctx ends or Shutdown.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.monitorMemory(ctx, interval)
}

// Reserve checks that size more bytes fit under the limit.
func (m *Manager) Reserve(size int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.usedMemory+size > m.maxMemory {
		return fmt.Errorf("memory limit exceeded: would use %d bytes, limit is %d",
			m.usedMemory+size, m.maxMemory)
	}
	return nil
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deallocCount++
	if info, exists := m.activeMats[id]; exists {
		delete(m.activeMats, id)
		m.usedMemory -= info.Size
	}
}

func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat != nil {
		mat.Close()
	}
}

func (m *Manager) GetStats() (allocCount, deallocCount int64, usedMemory int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocCount, m.deallocCount, m.usedMemory
}

func (m *Manager) GetActiveMatCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeMats)
}

func (m *Manager) monitorMemory(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	alloc, dealloc, used := m.GetStats()
	activeCount := m.GetActiveMatCount()

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":   alloc,
		"deallocations": dealloc,
		"used_bytes":    used,
		"active_mats":   activeCount,
	})

	if activeCount > 0 {
		m.logOldestMats(5)
	}
}

func (m *Manager) oldest(count int) []MatInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})

	if len(infos) > count {
		infos = infos[:count]
	}
	return infos
}

func (m *Manager) logOldestMats(count int) {
	now := time.Now()
	for _, info := range m.oldest(count) {
		m.logger.Warning("MemoryManager", "long-lived Mat detected", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
			"age":  now.Sub(info.Timestamp).String(),
		})
	}
}

// Shutdown stops the monitor and reports Mats that were never released.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, info := range m.activeMats {
		m.logger.Warning("MemoryManager", "unreleased Mat at shutdown", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
	}

	m.logger.Info("MemoryManager", "shutdown completed", map[string]interface{}{
		"allocations":   m.allocCount,
		"deallocations": m.deallocCount,
		"leaked_mats":   len(m.activeMats),
	})
}
