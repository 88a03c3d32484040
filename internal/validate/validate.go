// Package validate provides field-level rules for policy records.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	bulkNumberRx   = regexp.MustCompile(`^\d{9}$`)
	manualNumberRx = regexp.MustCompile(`^\d{8,9}$`)
)

// Renewal-period payment mode abbreviations.
var renewalModes = map[string]bool{"qly": true, "hly": true, "yly": true}

// Long-form payment modes used by the all-policies registry.
var registryModes = map[string]bool{
	"Monthly": true, "Quarterly": true, "Half-Yearly": true, "Yearly": true,
}

// BulkPolicyNumber checks the fixed-length rule for bulk-imported records.
func BulkPolicyNumber(n string) error {
	if !bulkNumberRx.MatchString(n) {
		return errors.New("policy number must be exactly 9 digits")
	}
	return nil
}

// ManualPolicyNumber checks the relaxed rule for manually entered records.
func ManualPolicyNumber(n string) error {
	if !manualNumberRx.MatchString(n) {
		return errors.New("policy number must be 8 or 9 digits")
	}
	return nil
}

// RenewalMode checks a renewal payment-frequency abbreviation.
func RenewalMode(m string) error {
	if !renewalModes[m] {
		return errors.New("mode must be one of qly, hly, yly")
	}
	return nil
}

// RegistryMode checks a long-form registry payment frequency.
func RegistryMode(m string) error {
	if !registryModes[m] {
		return errors.New("mode must be one of Monthly, Quarterly, Half-Yearly, Yearly")
	}
	return nil
}

// CustomerName requires a non-empty name after trimming.
func CustomerName(n string) error {
	if strings.TrimSpace(n) == "" {
		return errors.New("customer name required")
	}
	return nil
}

// Amount requires a positive premium.
func Amount(a float64) error {
	if a <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// Commission requires a non-negative commission.
func Commission(c float64) error {
	if c < 0 {
		return errors.New("commission cannot be negative")
	}
	return nil
}

// ReceiptExt checks the upload extension for a receipt image.
func ReceiptExt(ext string) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg", "png", "webp":
		return nil
	}
	return errors.New("receipt must be a jpg, jpeg, png or webp image")
}
