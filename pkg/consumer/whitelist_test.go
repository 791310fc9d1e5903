package consumer

import (
	"testing"

	"go.uber.org/zap"
)

func TestWhitelistContainsIP(t *testing.T) {
	w := NewWhitelist([]string{"10.0.0.0/8", "192.168.1.5", "bad-cidr"}, zap.NewNop().Sugar())

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.168.1.5", true},
		{"192.168.1.6", false},
		{"8.8.8.8", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := w.ContainsIP(tt.ip); got != tt.want {
			t.Errorf("ContainsIP(%q): expected %v, got %v", tt.ip, tt.want, got)
		}
	}
}

func TestWhitelistEmpty(t *testing.T) {
	w := NewWhitelist(nil, zap.NewNop().Sugar())
	if w.ContainsIP("10.1.2.3") {
		t.Errorf("empty whitelist must not match anything")
	}
}
