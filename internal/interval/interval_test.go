package interval

import (
	"testing"
	"time"
)

var base = time.Date(2026, 2, 23, 18, 0, 0, 0, time.UTC)

func at(minOffset int) time.Time { return base.Add(time.Duration(minOffset) * time.Minute) }

func TestOverlap_Basic(t *testing.T) {
	cases := []struct {
		name   string
		startA time.Time
		durA   int
		startB time.Time
		durB   int
		want   bool
	}{
		{"identical windows", at(0), 120, at(0), 120, true},
		{"B starts inside A", at(0), 120, at(60), 120, true},
		{"B fully inside A", at(0), 120, at(30), 30, true},
		{"A fully inside B", at(30), 30, at(0), 120, true},
		{"back-to-back, A then B", at(0), 120, at(120), 60, false},
		{"back-to-back, B then A", at(120), 60, at(0), 120, false},
		{"disjoint", at(0), 120, at(240), 120, false},
		{"one minute of overlap", at(0), 120, at(119), 60, true},
		{"zero-duration B at A start", at(0), 120, at(0), 0, false},
		{"zero-duration B inside A", at(0), 120, at(60), 0, false},
		{"zero-duration A", at(60), 0, at(0), 120, false},
		{"both zero-duration, same start", at(0), 0, at(0), 0, false},
		{"negative duration never overlaps", at(0), -30, at(0), 120, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlap(tc.startA, tc.durA, tc.startB, tc.durB); got != tc.want {
				t.Fatalf("Overlap(%v,%d,%v,%d) = %v, want %v",
					tc.startA, tc.durA, tc.startB, tc.durB, got, tc.want)
			}
		})
	}
}

func TestOverlap_Symmetric(t *testing.T) {
	// overlap(A,B) == overlap(B,A) across a grid of offsets and durations.
	offsets := []int{-240, -120, -60, -1, 0, 1, 59, 60, 119, 120, 121, 240}
	durations := []int{0, 1, 60, 120, 240}
	for _, off := range offsets {
		for _, da := range durations {
			for _, db := range durations {
				ab := Overlap(at(0), da, at(off), db)
				ba := Overlap(at(off), db, at(0), da)
				if ab != ba {
					t.Fatalf("asymmetric: off=%d durA=%d durB=%d: %v vs %v", off, da, db, ab, ba)
				}
			}
		}
	}
}

func TestOverlap_SelfOverlap(t *testing.T) {
	for _, dur := range []int{1, 60, 120, 240} {
		if !Overlap(at(0), dur, at(0), dur) {
			t.Fatalf("positive-duration window must overlap itself (dur=%d)", dur)
		}
	}
}

func TestEnd(t *testing.T) {
	if got := End(base, 120); !got.Equal(at(120)) {
		t.Fatalf("End = %v, want %v", got, at(120))
	}
}

func TestContains(t *testing.T) {
	if !Contains(base, 120, base) {
		t.Fatal("start instant must be inside the window")
	}
	if !Contains(base, 120, at(119)) {
		t.Fatal("last minute must be inside the window")
	}
	if Contains(base, 120, at(120)) {
		t.Fatal("end instant must be outside the window")
	}
	if Contains(base, 120, at(-1)) {
		t.Fatal("instant before start must be outside the window")
	}
}

func TestDayBounds(t *testing.T) {
	from, to := DayBounds(time.Date(2026, 2, 23, 18, 30, 12, 0, time.UTC))
	wantFrom := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Fatalf("DayBounds = (%v, %v), want (%v, %v)", from, to, wantFrom, wantTo)
	}
}
