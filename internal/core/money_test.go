package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "simple integer", input: "10", want: 1000},
		{name: "with dot", input: "12.34", want: 1234},
		{name: "with comma", input: "12,34", want: 1234},
		{name: "single fractional digit", input: "5.5", want: 550},
		{name: "rounds half up", input: "1.005", want: 101},
		{name: "rounds down below half", input: "1.004", want: 100},
		{name: "trims whitespace", input: " 7.25 ", want: 725},
		{name: "one cent", input: "0.01", want: 1},
		{name: "max amount", input: "1000000", want: MaxAmountCents},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "zero with fraction", input: "0.00", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "explicit plus", input: "+5", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
		{name: "bare dot", input: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyValidate(t *testing.T) {
	tests := []struct {
		name    string
		cents   int64
		wantErr error
	}{
		{name: "one cent", cents: 1},
		{name: "typical", cents: 1234},
		{name: "exact maximum", cents: MaxAmountCents},
		{name: "zero", cents: 0, wantErr: ErrInvalidAmount},
		{name: "negative", cents: -100, wantErr: ErrInvalidAmount},
		{name: "one over maximum", cents: MaxAmountCents + 1, wantErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Money{Cents: tt.cents}.Validate()
			if err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 0, want: "0.00"},
		{cents: 1, want: "0.01"},
		{cents: 1234, want: "12.34"},
		{cents: 100000, want: "1000.00"},
		{cents: -1250, want: "-12.50"},
		{cents: 505, want: "5.05"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
