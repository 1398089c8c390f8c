package memory

import (
	"sync"

	"tableread/internal/screenplay"
)

// RecentBuffer holds the last K scenes in full text. Pushing beyond capacity
// evicts the oldest scene, which the caller must hand to the compressor
// before the full text is lost.
type RecentBuffer struct {
	mu       sync.RWMutex
	scenes   []screenplay.Scene
	capacity int
}

const DefaultBufferSize = 4

func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &RecentBuffer{capacity: capacity}
}

// Push appends a scene and returns the evicted scene, if any.
func (b *RecentBuffer) Push(scene screenplay.Scene) (screenplay.Scene, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scenes = append(b.scenes, scene)
	if len(b.scenes) <= b.capacity {
		return screenplay.Scene{}, false
	}
	evicted := b.scenes[0]
	b.scenes = b.scenes[1:]
	return evicted, true
}

// Scenes returns the buffered scenes oldest first.
func (b *RecentBuffer) Scenes() []screenplay.Scene {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]screenplay.Scene(nil), b.scenes...)
}

func (b *RecentBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scenes)
}

func (b *RecentBuffer) Capacity() int { return b.capacity }
