package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// PreferencesInput is a partial preferences update. Nil fields are left as is.
type PreferencesInput struct {
	DarkMode *bool   `json:"darkMode"`
	Role     *string `json:"role" validate:"omitempty,oneof=customer admin"`
}

// PreferencesResult is the outcome of an update. PersistErr is set when one
// of the slot writes failed.
type PreferencesResult struct {
	Preferences domain.Preferences `json:"preferences"`
	Changed     []domain.Slot      `json:"changed"`
	PersistErr  error              `json:"-"`
}

// PreferenceService manages the darkMode and role slots, which every tab of
// a session observes.
type PreferenceService struct {
	store   storage.Store
	watcher storage.Watcher
	logger  *slog.Logger
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(store storage.Store, watcher storage.Watcher, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{store: store, watcher: watcher, logger: logger}
}

// Get returns the session preferences, using defaults for anything missing
// or unreadable.
func (s *PreferenceService) Get(ctx context.Context, sessionID string) domain.Preferences {
	prefs := domain.DefaultPreferences()

	if v, ok := s.read(ctx, sessionID, domain.SlotDarkMode); ok {
		prefs.DarkMode = domain.ParseDarkMode(v)
	}
	if v, ok := s.read(ctx, sessionID, domain.SlotRole); ok {
		if domain.ValidRole(v) {
			prefs.Role = v
		} else {
			malformedSlots.WithLabelValues(string(domain.SlotRole)).Inc()
		}
	}
	return prefs
}

func (s *PreferenceService) read(ctx context.Context, sessionID string, slot domain.Slot) (string, bool) {
	v, err := s.store.Get(ctx, sessionID, slot)
	if err != nil {
		if !storage.IsNotFound(err) {
			logger.WithContext(ctx, s.logger).WarnContext(ctx, "preference read failed",
				slog.String("slot", string(slot)),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return v, true
}

// Set writes the changed preferences and notifies the session's tabs. Each
// change carries tab.TabID so the writing tab can ignore its own echo.
func (s *PreferenceService) Set(ctx context.Context, tab Tab, in PreferencesInput) (PreferencesResult, error) {
	if in.Role != nil && !domain.ValidRole(*in.Role) {
		return PreferencesResult{}, apperrors.InvalidInput(fmt.Sprintf("role must be %s or %s", domain.RoleCustomer, domain.RoleAdmin))
	}

	current := s.Get(ctx, tab.SessionID)
	next := current
	var changes []domain.PreferenceChange

	if in.DarkMode != nil && *in.DarkMode != current.DarkMode {
		next.DarkMode = *in.DarkMode
		changes = append(changes, domain.PreferenceChange{Slot: domain.SlotDarkMode, Value: domain.FormatDarkMode(next.DarkMode), SourceTab: tab.TabID})
	}
	if in.Role != nil && *in.Role != current.Role {
		next.Role = *in.Role
		changes = append(changes, domain.PreferenceChange{Slot: domain.SlotRole, Value: next.Role, SourceTab: tab.TabID})
	}

	res := PreferencesResult{Preferences: next, Changed: []domain.Slot{}}
	log := logger.WithContext(ctx, s.logger)
	for _, c := range changes {
		res.Changed = append(res.Changed, c.Slot)

		if err := s.store.Set(ctx, tab.SessionID, c.Slot, c.Value); err != nil {
			persistFailures.WithLabelValues(string(c.Slot)).Inc()
			log.ErrorContext(ctx, "preference write failed", slog.String("slot", string(c.Slot)), slog.String("error", err.Error()))
			if res.PersistErr == nil {
				res.PersistErr = fmt.Errorf("persist %s: %w", c.Slot, err)
			}
		}
		if err := s.watcher.Notify(ctx, tab.SessionID, c); err != nil {
			log.WarnContext(ctx, "preference change broadcast failed", slog.String("slot", string(c.Slot)), slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// Watch calls fn for every preference change made by any tab of the session.
func (s *PreferenceService) Watch(ctx context.Context, sessionID string, fn func(domain.PreferenceChange)) (func(), error) {
	return s.watcher.Watch(ctx, sessionID, fn)
}
