package bot

import "fmt"

// FormatCooldown renders a remaining-seconds value as human-readable
// text: "45 seconds", "1 minute", or "2 minutes and 1 second". Singular
// and plural forms differ only by the trailing "s". Pure function.
func FormatCooldown(remainingSeconds int) string {
	if remainingSeconds < 60 {
		return fmt.Sprintf("%d second%s", remainingSeconds, plural(remainingSeconds))
	}

	minutes := remainingSeconds / 60
	seconds := remainingSeconds % 60
	if seconds == 0 {
		return fmt.Sprintf("%d minute%s", minutes, plural(minutes))
	}
	return fmt.Sprintf("%d minute%s and %d second%s", minutes, plural(minutes), seconds, plural(seconds))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

var cooldownTemplates = []string{
	"⏰ %syou're asking questions a bit too quickly! Please wait **%s** before asking another question.",
	"🚦 %sslow down there! You can ask your next question in **%s**.",
	"⏳ %syou're on cooldown! Please wait **%s** before asking again.",
	"🕐 %stake a breather! You can ask another question in **%s**.",
}

const cooldownTip = "\n💡 *This helps me provide better responses to everyone!*"

// CooldownMessage builds the reply for a throttled user. The template is
// chosen by remainingSeconds, so the same countdown always yields the
// same message modulo the optional username personalization.
func CooldownMessage(remainingSeconds int, username string) string {
	greeting := ""
	if username != "" {
		greeting = username + ", "
	}

	template := cooldownTemplates[remainingSeconds%len(cooldownTemplates)]
	return fmt.Sprintf(template, greeting, FormatCooldown(remainingSeconds)) + cooldownTip
}

// CrossPlatformNotice explains that web and Discord share one limit.
func CrossPlatformNotice(remainingSeconds int) string {
	return fmt.Sprintf(
		"⏰ You recently asked a question on the web interface! "+
			"Please wait **%s** before asking another question.\n\n"+
			"🔗 *Rate limits are shared between Discord and the web interface to ensure fair usage.*",
		FormatCooldown(remainingSeconds),
	)
}
