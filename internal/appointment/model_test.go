package appointment

import (
	"errors"
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", at(0), at(30), at(0), at(30), true},
		{"partial left", at(0), at(30), at(15), at(45), true},
		{"partial right", at(15), at(45), at(0), at(30), true},
		{"contains", at(0), at(60), at(15), at(30), true},
		{"touching end", at(0), at(30), at(30), at(60), false},
		{"touching start", at(30), at(60), at(0), at(30), false},
		{"disjoint", at(0), at(30), at(45), at(60), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"PENDING", "confirmed", " Cancelled ", "COMPLETED"} {
		if _, err := ParseStatus(in); err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", in, err)
		}
	}

	for _, in := range []string{"", "DONE", "EXPIRED"} {
		_, err := ParseStatus(in)
		if !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q) error = %v, want ErrInvalidStatus", in, err)
		}
	}
}
