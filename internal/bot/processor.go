package bot

import (
	"regexp"
	"strings"

	goaway "github.com/TwiN/go-away"

	"github.com/askracha/askracha/internal/answer"
)

var mentionPattern = regexp.MustCompile(`<@!?\d+>`)

// Processor turns raw Discord messages into questions and pipeline
// answers into Discord replies.
type Processor struct {
	maxResponseLength int
	detector          *goaway.ProfanityDetector
}

func NewProcessor(maxResponseLength int) *Processor {
	return &Processor{
		maxResponseLength: maxResponseLength,
		detector:          goaway.NewProfanityDetector(),
	}
}

// ExtractQuestion strips the bot mention and collapses whitespace.
// Returns "" when nothing remains to ask.
func (p *Processor) ExtractQuestion(content string) string {
	cleaned := mentionPattern.ReplaceAllString(content, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// IsProfane screens a question before it reaches the answer pipeline.
func (p *Processor) IsProfane(question string) bool {
	return p.detector.IsProfane(question)
}

// FormatAnswer renders a pipeline answer for Discord, truncating to the
// configured maximum message length.
func (p *Processor) FormatAnswer(ans *answer.Answer) string {
	if ans == nil || !ans.Success {
		return "I'm having trouble processing your question right now. Please try again later! 🔧"
	}
	if strings.TrimSpace(ans.Answer) == "" {
		return "I couldn't find a good answer to your question. Could you try rephrasing it? 🤔"
	}
	return p.Truncate(ans.Answer)
}

// Truncate cuts text to the maximum response length, marking the cut.
// Length is counted in runes since Discord counts characters, not bytes.
func (p *Processor) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= p.maxResponseLength {
		return text
	}

	const marker = "... *(truncated)*"
	cut := p.maxResponseLength - len([]rune(marker))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + marker
}
