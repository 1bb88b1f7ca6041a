package expiry

import (
	"fmt"

	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

const (
	DefaultWarningDays  = 3
	DefaultCriticalDays = 0
)

// Settings is the single threshold record.
type Settings struct {
	Enabled      bool `json:"enabled"`
	WarningDays  int  `json:"warningDays"`
	CriticalDays int  `json:"criticalDays"`
}

// DefaultSettings returns the thresholds used when none were stored.
func DefaultSettings() Settings {
	return Settings{Enabled: true, WarningDays: DefaultWarningDays, CriticalDays: DefaultCriticalDays}
}

// Validate enforces 0 <= criticalDays <= warningDays.
func (s Settings) Validate() error {
	if s.WarningDays < 0 || s.CriticalDays < 0 {
		return apperrors.New(apperrors.ErrCodeSettingsOutOfRange, "threshold days must not be negative").
			WithDetail(fmt.Sprintf("warningDays=%d criticalDays=%d", s.WarningDays, s.CriticalDays))
	}
	if s.CriticalDays > s.WarningDays {
		return apperrors.New(apperrors.ErrCodeSettingsOutOfRange, "criticalDays must not exceed warningDays").
			WithDetail(fmt.Sprintf("warningDays=%d criticalDays=%d", s.WarningDays, s.CriticalDays))
	}
	return nil
}

// BandFor maps a days-until-expiry value to its band.
func (s Settings) BandFor(days int) Band {
	switch {
	case days <= s.CriticalDays:
		return BandCritical
	case days <= s.WarningDays:
		return BandWarning
	default:
		return BandNormal
	}
}
