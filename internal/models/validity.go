package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Validity is the tri-state outcome of the last session check.
// An account starts out ValidityUnknown and can move between any two states
// on the next check; no state is terminal.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalJSON persists the tri-state as null/true/false, matching the
// on-disk layout consumed by earlier versions of the account list.
func (v Validity) MarshalJSON() ([]byte, error) {
	switch v {
	case ValidityValid:
		return []byte("true"), nil
	case ValidityInvalid:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Validity) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*v = ValidityUnknown
		return nil
	}
	var flag bool
	if err := json.Unmarshal(b, &flag); err != nil {
		return fmt.Errorf("validity must be null or boolean: %w", err)
	}
	if flag {
		*v = ValidityValid
	} else {
		*v = ValidityInvalid
	}
	return nil
}
