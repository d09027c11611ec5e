package rules

import "context"

// Repository defines the rule-store interface. All lookups return
// ErrRuleNotFound when the key has no record and ErrRepositoryUnavailable
// when the store cannot be reached; both wrap via eris so callers test with
// eris.Is.
type Repository interface {
	// GetZoneRule fetches the urbanistic parameters for a (zone, use) pair.
	GetZoneRule(ctx context.Context, zoneCode, useCode string) (*ZoneRule, error)

	// GetCurrentParkingRule fetches the current-generation parking rule for
	// a use, already parsed into the closed term set.
	GetCurrentParkingRule(ctx context.Context, useCode string) (*ParkingRule, error)

	// GetLegacyParkingRule fetches the previous-generation parking rule,
	// mapped onto the same term set.
	GetLegacyParkingRule(ctx context.Context, useCode string) (*ParkingRule, error)

	// GetUseSanitaryProfileID maps a use code to its sanitary profile id.
	GetUseSanitaryProfileID(ctx context.Context, useCode string) (string, error)

	// GetSanitaryProfile fetches a parsed fixture table by profile id.
	GetSanitaryProfile(ctx context.Context, profileID string) (*SanitaryProfile, error)

	// ListActiveUseTypes returns the selectable uses, ordered by category
	// then label.
	ListActiveUseTypes(ctx context.Context) ([]UseType, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
