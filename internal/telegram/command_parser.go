package telegram

import (
	"strings"

	"github.com/kitbuilder587/webqa/internal/domain"
)

// /fast -> без загрузки статей, /force -> игнорировать answer box,
// /ask и обычный текст -> defaults
func ParseQuestionCommand(text string, defaults domain.Options) (question string, opts domain.Options) {
	text = strings.TrimSpace(text)
	opts = defaults

	if text == "" {
		return "", opts
	}

	if !strings.HasPrefix(text, "/") {
		return text, opts
	}

	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(parts[0])
	// в группах команда приходит как /fast@botname
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}

	var rest string
	if len(parts) > 1 {
		rest = normalizeSpaces(parts[1])
	}

	switch command {
	case "/fast":
		opts.ParseArticles = false
		return rest, opts
	case "/force":
		opts.ForceAI = true
		return rest, opts
	case "/ask":
		return rest, opts
	default:
		return text, opts
	}
}

// IsQuestionCommand - команды, которые задают вопрос, а не управляют ботом.
func IsQuestionCommand(cmd string) bool {
	switch strings.ToLower(cmd) {
	case "fast", "force", "ask":
		return true
	}
	return false
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
