package clock

import (
	"testing"
	"time"
)

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestWinter ensures the plain offset is used outside the DST window.
func TestWinter(t *testing.T) {
	c := New()
	c.SetSource(fixed(time.Date(2020, time.January, 10, 12, 0, 0, 0, time.UTC)))

	now := c.Now()
	if now.Hour() != 13 || now.Minute() != 0 {
		t.Fatalf("unexpected local time %s", now)
	}
	_, off := now.Zone()
	if off != 3600 {
		t.Fatalf("unexpected zone offset %d", off)
	}
}

// TestSummer ensures the extra hour is applied inside the DST window.
func TestSummer(t *testing.T) {
	c := New()
	c.SetSource(fixed(time.Date(2020, time.July, 1, 12, 0, 0, 0, time.UTC)))

	now := c.Now()
	if now.Hour() != 14 {
		t.Fatalf("unexpected local time %s", now)
	}
	if !c.InDST(now) {
		t.Fatalf("expected DST to be in effect")
	}
}

// TestBoundaries ensures the window is inclusive, and zero-based.
func TestBoundaries(t *testing.T) {
	c := New()
	c.SetOffsetAndDST(0, 10, 20)

	// YearDay 11 is day 10
	if !c.InDST(time.Date(2021, time.January, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first day should be inside the window")
	}
	if !c.InDST(time.Date(2021, time.January, 21, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("last day should be inside the window")
	}
	if c.InDST(time.Date(2021, time.January, 22, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after the window should be outside")
	}
	if c.InDST(time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day before the window should be outside")
	}
}

// TestAdjustment ensures the explicit adjustment is applied.
func TestAdjustment(t *testing.T) {
	c := New()
	c.SetOffsetAndDST(-300, 0, 0)
	c.SetTimeAdjustment(-15)
	c.SetSource(fixed(time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)))

	now := c.Now()
	if now.Hour() != 6 || now.Minute() != 45 {
		t.Fatalf("unexpected local time %s", now)
	}
}
