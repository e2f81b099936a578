package bot

import (
	"strings"
	"testing"
)

func TestFormatCooldown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{seconds: 1, want: "1 second"},
		{seconds: 45, want: "45 seconds"},
		{seconds: 59, want: "59 seconds"},
		{seconds: 60, want: "1 minute"},
		{seconds: 61, want: "1 minute and 1 second"},
		{seconds: 90, want: "1 minute and 30 seconds"},
		{seconds: 120, want: "2 minutes"},
		{seconds: 121, want: "2 minutes and 1 second"},
		{seconds: 150, want: "2 minutes and 30 seconds"},
		{seconds: 0, want: "0 seconds"},
	}

	for _, tt := range tests {
		got := FormatCooldown(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatCooldown(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestCooldownMessage(t *testing.T) {
	t.Run("deterministic for same countdown", func(t *testing.T) {
		first := CooldownMessage(45, "alice")
		for i := 0; i < 5; i++ {
			if got := CooldownMessage(45, "alice"); got != first {
				t.Fatalf("message changed between calls: %q vs %q", got, first)
			}
		}
	})

	t.Run("includes username and countdown", func(t *testing.T) {
		msg := CooldownMessage(45, "alice")
		if !strings.Contains(msg, "alice, ") {
			t.Errorf("message %q missing username greeting", msg)
		}
		if !strings.Contains(msg, "45 seconds") {
			t.Errorf("message %q missing countdown", msg)
		}
		if !strings.Contains(msg, cooldownTip) {
			t.Errorf("message %q missing tip line", msg)
		}
	})

	t.Run("no username omits greeting", func(t *testing.T) {
		msg := CooldownMessage(45, "")
		if strings.Contains(msg, ", ,") {
			t.Errorf("empty username left a dangling greeting: %q", msg)
		}
	})

	t.Run("template varies with countdown", func(t *testing.T) {
		seen := make(map[string]bool)
		for s := 1; s <= len(cooldownTemplates); s++ {
			msg := CooldownMessage(s, "")
			// Strip the countdown so only the template shape remains.
			shape := strings.Replace(msg, FormatCooldown(s), "", 1)
			seen[shape] = true
		}
		if len(seen) != len(cooldownTemplates) {
			t.Errorf("got %d distinct templates over a full cycle, want %d", len(seen), len(cooldownTemplates))
		}
	})
}

func TestCrossPlatformNotice(t *testing.T) {
	msg := CrossPlatformNotice(90)
	if !strings.Contains(msg, "1 minute and 30 seconds") {
		t.Errorf("notice %q missing countdown", msg)
	}
	if !strings.Contains(msg, "web interface") {
		t.Errorf("notice %q does not mention the web interface", msg)
	}
	if !strings.Contains(msg, "shared") {
		t.Errorf("notice %q does not explain the shared limit", msg)
	}
}
