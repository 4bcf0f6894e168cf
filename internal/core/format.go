package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	isoLayout   = "2006-01-02T15:04:05.000Z07:00"
	inputLayout = "2006-01-02"
	itLayout    = "02/01/2006"
)

// FormatCurrency formats an amount the way it-IT renders EUR: dot thousands
// separator, comma decimals, a non-breaking space before the euro sign.
//
//	FormatCurrency(Money{Cents: -4550})  -> "-45,50 €"
//	FormatCurrency(Money{Cents: 123456}) -> "1.234,56 €"
func FormatCurrency(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	digits := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	s := grouped.String() + "," + fmt.Sprintf("%02d", cents%100) + " €"
	if neg {
		return "-" + s
	}
	return s
}

// FormatDateIt formats a date as DD/MM/YYYY.
func FormatDateIt(t time.Time) string {
	return t.Format(itLayout)
}

// ToISODate formats a date as an ISO-8601 UTC timestamp with milliseconds.
func ToISODate(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ToInputDate formats a date as yyyy-mm-dd, the form used by date inputs.
func ToInputDate(t time.Time) string {
	return t.Format(inputLayout)
}

// ParseDate accepts ISO-8601 timestamps as well as plain yyyy-mm-dd dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date{Time: t.UTC()}, nil
	}
	if t, err := time.Parse(inputLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	return FormatDateIt(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(ToISODate(d.Time))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
