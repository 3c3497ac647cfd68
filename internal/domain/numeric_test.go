package domain

import "testing"

func TestFloatOrNil(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"plain value", "7.31542", fptr(7.31542)},
		{"zero is nil", "0", nil},
		{"zero point zero is nil", "0.0", nil},
		{"garbage is nil", "N/A", nil},
		{"empty is nil", "", nil},
		{"whitespace trimmed", " 1.5 ", fptr(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloatOrNil(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("FloatOrNil(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("FloatOrNil(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestIntOrNil(t *testing.T) {
	if got := IntOrNil("42"); got == nil || *got != 42 {
		t.Errorf("IntOrNil(42) = %v, want 42", got)
	}
	if got := IntOrNil("0"); got != nil {
		t.Errorf("IntOrNil(0) = %v, want nil", got)
	}
	if got := IntOrNil("Not Ranked"); got != nil {
		t.Errorf("IntOrNil(Not Ranked) = %v, want nil", got)
	}
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"21 and up", 21, true},
		{"5", 5, true},
		{" 12 ", 12, true},
		{"and up", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := LeadingInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LeadingInt(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func fptr(f float64) *float64 { return &f }
