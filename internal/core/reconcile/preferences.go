package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/notewire/notewire/internal/core/bucket"
	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

// PreferenceSync performs read-modify-write cycles against the single shared
// preferences record. Writes are never debounced; each call issues its own
// round trip and the last write to arrive at the backend wins.
type PreferenceSync struct {
	preferences bucket.Bucket[model.Preferences]
	timeout     time.Duration
	logger      log.Log
}

// NewPreferenceSync builds a synchronizer over the preferences bucket.
func NewPreferenceSync(preferences bucket.Bucket[model.Preferences], logger log.Log) *PreferenceSync {
	return &PreferenceSync{
		preferences: preferences,
		timeout:     15 * time.Second,
		logger:      logger.With(log.String("component", "preference_sync")),
	}
}

// SetAnalytics writes analytics_enabled, preserving every other field of the
// record verbatim.
func (p *PreferenceSync) SetAnalytics(enabled bool) {
	go p.readModifyWrite(func(prefs model.Preferences) model.Preferences {
		return prefs.WithAnalytics(enabled)
	})
}

// ToggleAnalytics flips analytics_enabled based on the backend's current
// value, not the local one.
func (p *PreferenceSync) ToggleAnalytics() {
	go p.readModifyWrite(func(prefs model.Preferences) model.Preferences {
		return prefs.WithAnalytics(!prefs.AnalyticsEnabled())
	})
}

func (p *PreferenceSync) readModifyWrite(mutate func(model.Preferences) model.Preferences) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	prefs, err := p.preferences.Get(ctx, model.PreferencesKey)
	switch {
	case errors.Is(err, bucket.ErrEntityNotFound):
		// first write creates the record
		prefs = model.Preferences{}
	case err != nil:
		p.logger.Error("Preferences read failed", log.Error(err))
		return
	}

	if err = p.preferences.Update(ctx, model.PreferencesKey, mutate(prefs), true); err != nil {
		p.logger.Error("Preferences write failed", log.Error(err))
	}
}
