package util

import (
	"testing"
)

func TestFormatClock(t *testing.T) {
	if got := FormatClock(300); got != "05:00" {
		t.Errorf("expected 05:00, got %q", got)
	}
	if got := FormatClock(61); got != "01:01" {
		t.Errorf("expected 01:01, got %q", got)
	}
	if got := FormatClock(-3); got != "00:00" {
		t.Errorf("negative seconds should clamp to 00:00, got %q", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30/1"); got != 30 {
		t.Errorf("expected 30, got %f", got)
	}
	if got := ParseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Errorf("expected ~29.97, got %f", got)
	}
	if got := ParseFrameRate("bogus"); got != 0 {
		t.Errorf("expected 0 for invalid input, got %f", got)
	}
	if got := ParseFrameRate("30/0"); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %f", got)
	}
}

func TestClampFrameRate(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{60, 30},
		{2, 5},
		{23.976, 23.98},
		{25, 25},
	}
	for _, c := range cases {
		if got := ClampFrameRate(c.in, 5, 30); got != c.want {
			t.Errorf("ClampFrameRate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
