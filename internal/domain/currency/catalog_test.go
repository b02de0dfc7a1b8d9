package currency

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		want  string
		found bool
	}{
		{name: "Exact match", code: "USD", want: "USD", found: true},
		{name: "Lowercase", code: "jpy", want: "JPY", found: true},
		{name: "Surrounding whitespace", code: " eur ", want: "EUR", found: true},
		{name: "Unknown", code: "XXX", found: false},
		{name: "Empty", code: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Lookup(tt.code)
			if ok != tt.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.code, ok, tt.found)
			}
			if ok && c.Code != tt.want {
				t.Errorf("Lookup(%q).Code = %q, want %q", tt.code, c.Code, tt.want)
			}
		})
	}
}

func TestCurrencies_PopularityOrder(t *testing.T) {
	list := Currencies()
	if len(list) == 0 {
		t.Fatal("Currencies() returned empty catalog")
	}

	seen := make(map[int]string, len(list))
	for i, c := range list {
		if i > 0 && list[i-1].PopularityRank >= c.PopularityRank {
			t.Errorf("catalog out of order at %s: rank %d after %d", c.Code, c.PopularityRank, list[i-1].PopularityRank)
		}
		if prev, dup := seen[c.PopularityRank]; dup {
			t.Errorf("duplicate popularity rank %d: %s and %s", c.PopularityRank, prev, c.Code)
		}
		seen[c.PopularityRank] = c.Code
	}
}

func TestCurrencies_ReturnsCopy(t *testing.T) {
	list := Currencies()
	list[0] = Currency{Code: "ZZZ"}

	if fresh := Currencies(); fresh[0].Code == "ZZZ" {
		t.Error("mutating the returned slice leaked into the catalog")
	}
}

func TestCurrencies_DecimalPlacesRange(t *testing.T) {
	for _, c := range Currencies() {
		if c.DecimalPlaces < 0 || c.DecimalPlaces > 4 {
			t.Errorf("%s has decimal places %d, want 0-4", c.Code, c.DecimalPlaces)
		}
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d.Code != DefaultCode {
		t.Errorf("Default().Code = %q, want %q", d.Code, DefaultCode)
	}
	if d.PopularityRank != 1 {
		t.Errorf("Default().PopularityRank = %d, want 1", d.PopularityRank)
	}
}
