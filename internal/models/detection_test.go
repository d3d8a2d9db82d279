package models

import "testing"

func TestProducerSeconds(t *testing.T) {
	tests := []struct {
		name    string
		tags    map[string]string
		want    string
		wantErr bool
	}{
		{
			name: "subseconds discarded",
			tags: map[string]string{ProducerTimestampTag: "1700000000.123456"},
			want: "1700000000",
		},
		{
			name: "truncation not rounding",
			tags: map[string]string{ProducerTimestampTag: "1700000000.999999"},
			want: "1700000000",
		},
		{
			name: "no subsecond part",
			tags: map[string]string{ProducerTimestampTag: "1700000000"},
			want: "1700000000",
		},
		{
			name:    "missing tag",
			tags:    map[string]string{"FRAGMENT_NUMBER": "91343852333"},
			wantErr: true,
		},
		{
			name:    "empty seconds",
			tags:    map[string]string{ProducerTimestampTag: ".5"},
			wantErr: true,
		},
		{
			name:    "not a number",
			tags:    map[string]string{ProducerTimestampTag: "now.ish"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProducerSeconds(tt.tags)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ProducerSeconds = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.123456789, "0.1235"},
		{0.5, "0.5"},
		{0.87, "0.87"},
		{0.00004, "0.0"},
		{0.9999, "0.9999"},
		{1, "1.0"},
		{0.1234, "0.1234"},
	}

	for _, tt := range tests {
		if got := FormatScore(tt.in); got != tt.want {
			t.Errorf("FormatScore(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
