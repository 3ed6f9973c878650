package audit

import "testing"

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config reports enabled")
	}
	if !(Config{URL: "nats://localhost:4222"}).Enabled() {
		t.Error("configured URL reports disabled")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"", "unknown"},
		{"claims-v1", "claims-v1"},
		{"org/model-v2.1", "org-model-v2-1"},
		{"a model > b", "a-model---b"},
	}

	for _, tt := range tests {
		if got := sanitizeToken(tt.model); got != tt.want {
			t.Errorf("sanitizeToken(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
