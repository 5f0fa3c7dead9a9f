package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
)

// MockUUID is a deterministic Generator for testing
type MockUUID struct {
	mu sync.Mutex

	// Results is a queue of IDs to return before falling back to a counter
	Results []string
	index   int
	counter int
}

// Ensure MockUUID implements Generator
var _ uuid.Generator = (*MockUUID)(nil)

// NewMockUUID creates a new MockUUID
func NewMockUUID() *MockUUID {
	return &MockUUID{}
}

// NewString returns the next queued ID, or "id-N" once the queue is empty
func (u *MockUUID) NewString() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.index < len(u.Results) {
		result := u.Results[u.index]
		u.index++
		return result
	}
	u.counter++
	return fmt.Sprintf("id-%d", u.counter)
}

// Queue adds IDs to the result queue
func (u *MockUUID) Queue(ids ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Results = append(u.Results, ids...)
}
