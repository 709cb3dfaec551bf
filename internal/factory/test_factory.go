package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/partygames/internal/dependencies/mocks"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Content comes from the built-in seed catalog only.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app, err := newWithDependencies(store, nil, mockClock, mockRandom, Config{Dispatcher: dispatcher.DefaultConfig()}, logger)
	if err != nil {
		// Only the embedded seed catalog can fail here
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestDictionary loads small word lists for the word race
func (t *TestApp) LoadTestDictionary() {
	t.DictionaryService.LoadWords("animal", []string{"antelope", "ant", "bear", "cat", "dog", "eagle"})
	t.DictionaryService.LoadWords("country", []string{"argentina", "austria", "brazil", "canada"})
	t.DictionaryService.LoadWords("food", []string{"apple", "avocado", "bread", "cheese"})
}
