package store

import (
	"encoding/json"
	"fmt"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
)

// Known record set names.
const (
	Assets     = "assets"
	Expenses   = "expenses"
	Income     = "income"
	Goals      = "goals"
	Categories = "categories"
	Settings   = "settings"
)

// EncryptionFlagField is the settings field that records whether the store is encrypted.
const EncryptionFlagField = "encryptionEnabled"

// KnownNames lists the record sets coffer creates on first run, in display order.
var KnownNames = []string{Assets, Expenses, Income, Goals, Categories, Settings}

var defaults = map[string]string{
	Assets:     `{"assets":[],"history":[]}`,
	Expenses:   `[]`,
	Income:     `[]`,
	Goals:      `[]`,
	Categories: `{"expense":["Housing","Food","Transport","Utilities","Health","Entertainment","Other"],"income":["Salary","Freelance","Investments","Gifts","Other"]}`,
	Settings:   `{"encryptionEnabled":false,"currency":"USD"}`,
}

// Default returns the first-run value for a known record set.
// ok is false for names coffer does not know.
func Default(name string) (value json.RawMessage, ok bool) {
	v, ok := defaults[name]
	if !ok {
		return nil, false
	}
	return json.RawMessage(v), true
}

// IsKnown reports whether name is one of KnownNames.
func IsKnown(name string) bool {
	_, ok := defaults[name]
	return ok
}

// EncryptionFlag reads encryptionEnabled from a settings value.
// A missing field reads as false.
func EncryptionFlag(settings json.RawMessage) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(settings, &fields); err != nil {
		return false, fmt.Errorf("%w: settings: %v", kerrors.ErrSerialization, err)
	}

	raw, ok := fields[EncryptionFlagField]
	if !ok {
		return false, nil
	}

	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false, fmt.Errorf("%w: settings.%s: %v", kerrors.ErrSerialization, EncryptionFlagField, err)
	}
	return enabled, nil
}

// WithEncryptionFlag returns settings with encryptionEnabled set to enabled.
// Every other field is kept as is.
func WithEncryptionFlag(settings json.RawMessage, enabled bool) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &fields); err != nil {
			return nil, fmt.Errorf("%w: settings: %v", kerrors.ErrSerialization, err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	flag, _ := json.Marshal(enabled)
	fields[EncryptionFlagField] = flag

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: settings: %v", kerrors.ErrSerialization, err)
	}
	return out, nil
}
