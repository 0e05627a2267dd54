// Package ffi is the foreign boundary of the detector. It is the only code touching raw C pointers:
// it validates incoming strings, serializes results to JSON and hands out malloc-ed buffers
// owned by the caller until released with Release.
//
// Caller obligations: every non-nil pointer returned by Analyze or Stats must be passed to Release
// exactly once. Releasing a pointer not obtained from this package, or releasing twice, is undefined
// behavior and not detected.
package ffi

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/phishti/smsguard/lib/smsguard"
)

// errors reported to the diagnostic log, callers see only the nil/negative sentinel
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrSerialization = errors.New("serialization failed")
	ErrAllocation    = errors.New("allocation failed")
)

// registry used by all entry points
var registry = smsguard.Default

// analyzeText validates raw foreign text and returns JSON-encoded result
func analyzeText(reg *smsguard.Registry, raw []byte) ([]byte, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: message is not valid utf-8", ErrInvalidInput)
	}

	res, err := reg.Analyze(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to analyze message: %w", err)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// statsJSON returns JSON-encoded detector stats
func statsJSON(reg *smsguard.Registry) ([]byte, error) {
	data, err := json.Marshal(reg.Stats())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}
