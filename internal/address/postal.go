package address

import (
	"regexp"
	"strings"
)

// Postal code formats by ISO country code. Countries not listed fall back
// to a minimum-length rule. One table consulted by one validator, instead
// of per-country validation scattered through the form layer.
var postalRules = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CA": regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ -]?\d[A-Za-z]\d$`),
	"GB": regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]?\s?\d[A-Za-z]{2}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
	"FR": regexp.MustCompile(`^\d{5}$`),
	"NL": regexp.MustCompile(`^\d{4}\s?[A-Za-z]{2}$`),
	"JP": regexp.MustCompile(`^\d{3}-?\d{4}$`),
	"AU": regexp.MustCompile(`^\d{4}$`),
	"BR": regexp.MustCompile(`^\d{5}-?\d{3}$`),
	"IN": regexp.MustCompile(`^\d{6}$`),
}

const fallbackMinLength = 3

// PostalCodeRule returns the pattern for a country, or nil when only the
// fallback minimum-length rule applies.
func PostalCodeRule(country string) *regexp.Regexp {
	return postalRules[strings.ToUpper(strings.TrimSpace(country))]
}

// ValidPostalCode checks code against the country's rule.
func ValidPostalCode(country, code string) bool {
	code = strings.TrimSpace(code)
	if rule := PostalCodeRule(country); rule != nil {
		return rule.MatchString(code)
	}
	return len(code) >= fallbackMinLength
}
