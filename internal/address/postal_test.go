package address

import "testing"

func TestValidPostalCode(t *testing.T) {
	cases := []struct {
		country string
		code    string
		want    bool
	}{
		{"US", "12345", true},
		{"US", "12345-6789", true},
		{"US", "1234", false},
		{"CA", "H2X 1Y6", true},
		{"CA", "H2X1Y6", true},
		{"CA", "12345", false},
		{"GB", "SW1A 1AA", true},
		{"AU", "2000", true},
		{"AU", "200", false},
		{"JP", "100-0001", true},
		{"DE", "10115", true},
		// Unknown country: minimum-length fallback.
		{"ZZ", "ab1", true},
		{"ZZ", "ab", false},
	}
	for _, c := range cases {
		if got := ValidPostalCode(c.country, c.code); got != c.want {
			t.Errorf("ValidPostalCode(%q, %q) = %v, want %v", c.country, c.code, got, c.want)
		}
	}
}

func TestPostalCodeRuleFallback(t *testing.T) {
	if PostalCodeRule("US") == nil {
		t.Fatal("expected a rule for US")
	}
	if PostalCodeRule("zz") != nil {
		t.Fatal("expected nil rule for unknown country")
	}
	if PostalCodeRule(" us ") == nil {
		t.Fatal("country lookup should trim and upper-case")
	}
}
