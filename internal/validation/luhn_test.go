package validation

import "testing"

func TestLooksLikeCardNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{
			name:   "visa test card",
			number: "4242424242424242",
			want:   true,
		},
		{
			name:   "grouped with spaces",
			number: "4539 5787 6362 1486",
			want:   true,
		},
		{
			name:   "invalid checksum",
			number: "4242424242424241",
			want:   false,
		},
		{
			name:   "too short",
			number: "79927398713",
			want:   false,
		},
		{
			name:   "payment method id",
			number: "pm_1NqQ2bKZ9y",
			want:   false,
		},
		{
			name:   "empty string",
			number: "",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LooksLikeCardNumber(tt.number)
			if got != tt.want {
				t.Fatalf("LooksLikeCardNumber(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}
