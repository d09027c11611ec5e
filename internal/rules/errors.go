package rules

import "github.com/rotisserie/eris"

// Sentinel outcomes for rule resolution. Callers distinguish them with
// eris.Is; none of them may be papered over with a default legal parameter.
var (
	// ErrRuleNotFound means the store has no record for the requested key.
	// Must be surfaced to the end user verbatim, never silently bypassed.
	ErrRuleNotFound = eris.New("rules: rule not found")

	// ErrRuleIncomplete means a present rule is missing a required numeric
	// field (occupancy max or permeability min).
	ErrRuleIncomplete = eris.New("rules: rule is missing a required field")

	// ErrMalformedRuleData means a structured parking or sanitary payload
	// contains an unrecognized term type or an unparseable formula.
	ErrMalformedRuleData = eris.New("rules: malformed rule data")

	// ErrRepositoryUnavailable means the rule store could not be reached or
	// timed out. Retry policy belongs to the store, not to callers.
	ErrRepositoryUnavailable = eris.New("rules: repository unavailable")
)
