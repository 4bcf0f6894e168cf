package core

import (
	"testing"
	"time"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[int64]string{
		0:         "0,00 €",
		-4550:     "-45,50 €",
		3766:      "37,66 €",
		123456:    "1.234,56 €",
		100000000: "1.000.000,00 €",
		-7:        "-0,07 €",
	}
	for cents, want := range cases {
		if got := FormatCurrency(Money{Cents: cents}); got != want {
			t.Fatalf("FormatCurrency(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestDateFormats(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDateIt(d); got != "05/01/2024" {
		t.Fatalf("FormatDateIt = %q", got)
	}
	if got := ToInputDate(d); got != "2024-01-05" {
		t.Fatalf("ToInputDate = %q", got)
	}
	if got := ToISODate(d); got != "2024-01-05T00:00:00.000Z" {
		t.Fatalf("ToISODate = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-01-05", "2024-01-05T00:00:00.000Z", "2024-01-05T00:00:00Z"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !d.Equal(NewDate(2024, 1, 5).Time) {
			t.Fatalf("ParseDate(%q) = %v", in, d)
		}
	}
	if _, err := ParseDate("05/01/2024"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}
