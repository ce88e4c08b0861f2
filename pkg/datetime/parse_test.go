package datetime

import (
	"testing"
)

func TestOffsetDate(t *testing.T) {
	tests := []struct {
		date     string
		months   int
		expected string
	}{
		{date: "2026-01", months: 0, expected: "2026-01"},
		{date: "2026-01", months: 1, expected: "2026-02"},
		{date: "2026-11", months: 3, expected: "2027-02"},
		{date: "2026-06", months: -7, expected: "2025-11"},
		{date: "2026-01", months: 60, expected: "2031-01"},
	}
	for _, test := range tests {
		got, err := OffsetDate(test.date, DateTimeLayout, test.months)
		if err != nil {
			t.Errorf("OffsetDate(%q, %d): unexpected error %v", test.date, test.months, err)
			continue
		}
		if got != test.expected {
			t.Errorf("OffsetDate(%q, %d) = %q, expected %q", test.date, test.months, got, test.expected)
		}
	}
}

func TestOffsetDateInvalid(t *testing.T) {
	if _, err := OffsetDate("January 2026", DateTimeLayout, 1); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestDateBeforeDate(t *testing.T) {
	tests := []struct {
		first    string
		second   string
		expected bool
	}{
		{first: "2026-01", second: "2026-02", expected: true},
		{first: "2026-02", second: "2026-01", expected: false},
		{first: "2026-01", second: "2026-01", expected: false},
	}
	for _, test := range tests {
		got, err := DateBeforeDate(test.first, test.second)
		if err != nil {
			t.Errorf("DateBeforeDate(%q, %q): unexpected error %v", test.first, test.second, err)
			continue
		}
		if got != test.expected {
			t.Errorf("DateBeforeDate(%q, %q) = %v, expected %v", test.first, test.second, got, test.expected)
		}
	}

	if _, err := DateBeforeDate("bogus", "2026-01"); err == nil {
		t.Error("expected error for unparseable first date")
	}
}

func TestMustParseTime(t *testing.T) {
	parsed := MustParseTime(DateTimeLayout, "2026-08")
	if parsed.Year() != 2026 || parsed.Month() != 8 {
		t.Errorf("unexpected parsed time %v", parsed)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid date")
		}
	}()
	MustParseTime(DateTimeLayout, "not a date")
}
