package factory

import (
	"time"

	"github.com/mcoot/dutchscore/internal/dependencies/mocks"
	"github.com/mcoot/dutchscore/internal/notify"
	"github.com/mcoot/dutchscore/internal/relay"
	"github.com/mcoot/dutchscore/internal/storage"
	"github.com/mcoot/dutchscore/internal/storage/memory"
	"github.com/mcoot/dutchscore/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockUUID   *mocks.MockUUID
	Recorder   *notify.Recorder
}

// NewTestApp creates an App on in-memory storage with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage creates a TestApp over the given medium, so that two
// apps can share one store to exercise restore
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockUUID := mocks.NewMockUUID()
	recorder := notify.NewRecorder()

	app := newWithDependencies(store, mockClock, mockRandom, mockUUID, recorder, relay.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockUUID:   mockUUID,
		Recorder:   recorder,
	}
}
