package vault

import (
	"fmt"
	"unicode"
)

// Passphrase length bounds. The minimum is a hard requirement; everything
// else surfaces as a warning.
const (
	MinPassphraseLength = 8
	MaxPassphraseLength = 128
)

// PassphraseStrength is a coarse estimate, not an entropy measurement.
type PassphraseStrength int

const (
	PassphraseWeak PassphraseStrength = iota
	PassphraseFair
	PassphraseGood
	PassphraseStrong
)

func (s PassphraseStrength) String() string {
	switch s {
	case PassphraseWeak:
		return "weak"
	case PassphraseFair:
		return "fair"
	case PassphraseGood:
		return "good"
	case PassphraseStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// PassphraseValidation is the result of checking a candidate master
// passphrase.
type PassphraseValidation struct {
	Valid    bool
	Strength PassphraseStrength
	Warnings []string
}

// ValidatePassphrase checks a candidate master passphrase. Length bounds
// are hard requirements; character-class mix only affects the strength
// estimate and the warnings.
func ValidatePassphrase(passphrase string) *PassphraseValidation {
	result := &PassphraseValidation{
		Valid:    true,
		Strength: PassphraseFair,
	}

	runes := []rune(passphrase)
	if len(runes) < MinPassphraseLength {
		result.Valid = false
		result.Strength = PassphraseWeak
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Passphrase must be at least %d characters", MinPassphraseLength))
		return result
	}
	if len(runes) > MaxPassphraseLength {
		result.Valid = false
		result.Strength = PassphraseWeak
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Passphrase must be at most %d characters", MaxPassphraseLength))
		return result
	}

	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if ok {
			classes++
		}
	}

	if classes < 2 {
		result.Warnings = append(result.Warnings,
			"Consider mixing uppercase, lowercase, digits, and symbols")
	}
	if len(runes) < 12 {
		result.Warnings = append(result.Warnings,
			"Longer passphrases (12+ characters) resist guessing better")
	}

	switch {
	case classes >= 3 && len(runes) >= 16:
		result.Strength = PassphraseStrong
	case classes >= 2 && len(runes) >= 12:
		result.Strength = PassphraseGood
	case classes >= 2 || len(runes) >= 12:
		result.Strength = PassphraseFair
	default:
		result.Strength = PassphraseWeak
	}

	return result
}
