package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

func seededPreferences(t *testing.T) *bucket.MemoryBucket[model.Preferences] {
	t.Helper()
	b := bucket.NewMemoryBucket[model.Preferences](bucket.KindPreferences)
	b.Seed(model.PreferencesKey, model.Preferences{
		"analytics_enabled": false,
		"theme":             "dark",
	})
	return b
}

func backendPrefs(t *testing.T, b *bucket.MemoryBucket[model.Preferences]) model.Preferences {
	t.Helper()
	prefs, err := b.Get(context.Background(), model.PreferencesKey)
	require.NoError(t, err)
	return prefs
}

func TestSetAnalyticsPreservesUnknownFields(t *testing.T) {
	b := seededPreferences(t)
	p := NewPreferenceSync(b, log.Nop())

	p.SetAnalytics(true)

	require.Eventually(t, func() bool {
		return backendPrefs(t, b).AnalyticsEnabled()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "dark", backendPrefs(t, b)["theme"])
}

func TestToggleAnalyticsFlipsBackendValue(t *testing.T) {
	b := seededPreferences(t)
	p := NewPreferenceSync(b, log.Nop())

	p.ToggleAnalytics()
	require.Eventually(t, func() bool {
		return backendPrefs(t, b).AnalyticsEnabled()
	}, time.Second, 5*time.Millisecond)

	p.ToggleAnalytics()
	require.Eventually(t, func() bool {
		return !backendPrefs(t, b).AnalyticsEnabled()
	}, time.Second, 5*time.Millisecond)
}

// inFlightPrefs holds every Get open until the test releases it, so two
// read-modify-write cycles can be overlapped deterministically.
type inFlightPrefs struct {
	bucket.Bucket[model.Preferences]

	gets chan chan model.Preferences

	mu     sync.Mutex
	writes []model.Preferences
}

func newInFlightPrefs() *inFlightPrefs {
	return &inFlightPrefs{gets: make(chan chan model.Preferences, 2)}
}

func (s *inFlightPrefs) Get(_ context.Context, _ model.EntityID) (model.Preferences, error) {
	reply := make(chan model.Preferences)
	s.gets <- reply
	return <-reply, nil
}

func (s *inFlightPrefs) Update(_ context.Context, _ model.EntityID, data model.Preferences, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, data)
	return nil
}

func (s *inFlightPrefs) written() []model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Preferences(nil), s.writes...)
}

func TestOverlappingTogglesResolveByArrivalOrder(t *testing.T) {
	stub := newInFlightPrefs()
	p := NewPreferenceSync(stub, log.Nop())

	p.ToggleAnalytics()
	p.ToggleAnalytics()

	first := <-stub.gets
	second := <-stub.gets

	// neither write has landed yet, so both reads observe the pre-toggle
	// state; release them in reverse order
	second <- model.Preferences{"analytics_enabled": false}
	first <- model.Preferences{"analytics_enabled": false}

	require.Eventually(t, func() bool {
		return len(stub.written()) == 2
	}, time.Second, 5*time.Millisecond)

	// each cycle toggled the value it read, so the second toggle is absorbed
	// instead of flipping back
	for _, w := range stub.written() {
		assert.True(t, w.AnalyticsEnabled())
	}
}

func TestSetAnalyticsWithoutExistingRecord(t *testing.T) {
	b := bucket.NewMemoryBucket[model.Preferences](bucket.KindPreferences)
	p := NewPreferenceSync(b, log.Nop())

	p.SetAnalytics(true)

	// the record is created when missing rather than dropped
	require.Eventually(t, func() bool {
		prefs, err := b.Get(context.Background(), model.PreferencesKey)
		return err == nil && prefs.AnalyticsEnabled()
	}, time.Second, 5*time.Millisecond)
}
