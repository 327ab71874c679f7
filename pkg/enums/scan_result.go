package enums

import "fmt"

// ScanResult classifies the outcome of one scan attempt.
type ScanResult string

const (
	ScanResultValid       ScanResult = "valid"
	ScanResultAlreadyUsed ScanResult = "already_used"
	ScanResultInvalid     ScanResult = "invalid"
	ScanResultRefunded    ScanResult = "refunded"
)

var validScanResults = []ScanResult{
	ScanResultValid,
	ScanResultAlreadyUsed,
	ScanResultInvalid,
	ScanResultRefunded,
}

// String implements fmt.Stringer.
func (r ScanResult) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ScanResult.
func (r ScanResult) IsValid() bool {
	for _, candidate := range validScanResults {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseScanResult converts raw input into a ScanResult.
func ParseScanResult(value string) (ScanResult, error) {
	for _, candidate := range validScanResults {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scan result %q", value)
}
