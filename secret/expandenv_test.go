package secret

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("BP_HOST", "db.local")
	t.Setenv("BP_EMPTY", "")

	tests := []struct {
		in      string
		want    string
		wantErr string
	}{
		{"plain", "plain", ""},
		{"${BP_HOST}:5432", "db.local:5432", ""},
		{"$BP_HOST/x", "db.local/x", ""},
		{"[${BP_EMPTY}]", "[]", ""},
		{"$BP_UNSET_BARE!", "!", ""},
		{"cost $$5", "cost $5", ""},
		{"trailing $", "trailing $", ""},
		{"${not valid}", "${not valid}", ""},
		{"${unclosed", "${unclosed", ""},
		{"${BP_NOPE_B} ${BP_NOPE_A} ${BP_NOPE_A}", "", "BP_NOPE_A, BP_NOPE_B"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.HasSuffix(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want suffix %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
