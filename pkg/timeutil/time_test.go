package timeutil

import (
	"testing"
	"time"
)

func TestStartAndEndOfDay(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		name      string
		input     time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "midnight UTC",
			input:     time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
			wantStart: "2025-11-20T00:00:00Z",
			wantEnd:   "2025-11-20T23:59:59.999999999Z",
		},
		{
			name:      "noon UTC",
			input:     time.Date(2025, 11, 20, 12, 30, 45, 0, time.UTC),
			wantStart: "2025-11-20T00:00:00Z",
			wantEnd:   "2025-11-20T23:59:59.999999999Z",
		},
		{
			name:      "early morning Moscow is the previous UTC day",
			input:     time.Date(2025, 11, 20, 1, 0, 0, 0, msk),
			wantStart: "2025-11-19T00:00:00Z",
			wantEnd:   "2025-11-19T23:59:59.999999999Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartOfDay(tt.input).Format(time.RFC3339Nano); got != tt.wantStart {
				t.Errorf("StartOfDay() = %s, want %s", got, tt.wantStart)
			}
			if got := EndOfDay(tt.input).Format(time.RFC3339Nano); got != tt.wantEnd {
				t.Errorf("EndOfDay() = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestStartOfMonth(t *testing.T) {
	got := StartOfMonth(time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC))
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfMonth() = %v, want %v", got, want)
	}
}

func TestParseBound(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		endOfDay bool
		want     string
		wantErr  bool
	}{
		{name: "rfc3339", value: "2025-03-01T10:00:00+03:00", want: "2025-03-01T07:00:00Z"},
		{name: "date_from", value: "2025-03-01", want: "2025-03-01T00:00:00Z"},
		{name: "date_to", value: "2025-03-01", endOfDay: true, want: "2025-03-01T23:59:59.999999999Z"},
		{name: "garbage", value: "yesterday", wantErr: true},
		{name: "day_out_of_range", value: "2025-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBound(tt.value, tt.endOfDay)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBound(%q) expected error, got %v", tt.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBound(%q) unexpected error: %v", tt.value, err)
			}
			if s := got.Format(time.RFC3339Nano); s != tt.want {
				t.Errorf("ParseBound(%q) = %s, want %s", tt.value, s, tt.want)
			}
		})
	}
}
