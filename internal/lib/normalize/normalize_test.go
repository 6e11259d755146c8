package normalize

import (
	"testing"
	"time"
)

func TestAmount_TableTests(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{name: "nil", input: nil, want: 0},
		{name: "int", input: 1200000, want: 1200000},
		{name: "json number", input: float64(990000), want: 990000},
		{name: "digit string", input: "750000", want: 750000},
		{name: "price with spaces and currency", input: "1 200 000 ₽", want: 1200000},
		{name: "price with dots", input: "3.500.000", want: 3500000},
		{name: "no digits at all", input: "договорная", want: 0},
		{name: "empty string", input: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Amount(tt.input); got != tt.want {
				t.Errorf("Amount(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestYear_TableTests(t *testing.T) {
	year := func(n int) *int { return &n }

	tests := []struct {
		name  string
		input any
		want  *int
	}{
		{name: "nil", input: nil, want: nil},
		{name: "int", input: 2019, want: year(2019)},
		{name: "json number", input: float64(2021), want: year(2021)},
		{name: "string", input: "2020", want: year(2020)},
		{name: "blank string", input: "   ", want: nil},
		{name: "garbage", input: "н/д", want: nil},
		{name: "zero year", input: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Year(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Year(%v) = %d, want nil", tt.input, *got)
			case tt.want != nil && got == nil:
				t.Errorf("Year(%v) = nil, want %d", tt.input, *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("Year(%v) = %d, want %d", tt.input, *got, *tt.want)
			}
		})
	}
}

func TestTelegramID(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{name: "nil", input: nil, want: 0},
		{name: "json number", input: float64(123456789), want: 123456789},
		{name: "string", input: "123456789", want: 123456789},
		{name: "garbage", input: "@username", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TelegramID(tt.input); got != tt.want {
				t.Errorf("TelegramID(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTime_TableTests(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{
			name:  "rfc3339 with zone",
			input: "2025-08-25T10:30:00+00:00",
			want:  timePtr(time.Date(2025, 8, 25, 10, 30, 0, 0, time.UTC)),
		},
		{
			name:  "rfc3339 with microseconds",
			input: "2025-08-25T10:30:00.123456+00:00",
			want:  timePtr(time.Date(2025, 8, 25, 10, 30, 0, 123456000, time.UTC)),
		},
		{
			name:  "isoformat without zone",
			input: "2025-08-25T10:30:00.123456",
			want:  timePtr(time.Date(2025, 8, 25, 10, 30, 0, 123456000, time.UTC)),
		},
		{
			name:  "date only",
			input: "2025-08-25",
			want:  timePtr(time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)),
		},
		{name: "empty", input: "", want: nil},
		{name: "garbage", input: "вчера", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Time(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Time(%q) = %v, want nil", tt.input, got)
			case tt.want != nil && got == nil:
				t.Errorf("Time(%q) = nil, want %v", tt.input, tt.want)
			case tt.want != nil && got != nil && !got.Equal(*tt.want):
				t.Errorf("Time(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
