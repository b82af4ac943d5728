package models

import "testing"

func TestParseVendor(t *testing.T) {
	for _, v := range Vendors() {
		got, err := ParseVendor(string(v))
		if err != nil || got != v {
			t.Fatalf("ParseVendor(%q) = %q, %v", v, got, err)
		}
	}
	for _, bad := range []string{"", "asterisk", "ThreeCX", "3cx"} {
		if _, err := ParseVendor(bad); err == nil {
			t.Fatalf("ParseVendor(%q) accepted", bad)
		}
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []AlertPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if !ValidPriority(p) {
			t.Fatalf("%q rejected", p)
		}
	}
	if ValidPriority("urgent") {
		t.Fatal("unknown priority accepted")
	}
}
