package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/service"
)

const defaultWrapWidth = 100

// wrapWidth - ширина для переноса: явная из флага, иначе ширина терминала.
func wrapWidth(flag int, fd int) int {
	if flag > 0 {
		return flag
	}
	if !term.IsTerminal(fd) {
		return defaultWrapWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWrapWidth
	}
	return w
}

func renderMarkdown(md string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return renderer.Render(md)
}

func answerMarkdown(resp *domain.AskResponse) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(resp.Question)
	sb.WriteString("\n\n")

	if resp.Answer.Success {
		sb.WriteString(resp.Answer.Value)
		sb.WriteString("\n")
	} else {
		kind := "unknown"
		if resp.Answer.Failure != nil {
			kind = string(resp.Answer.Failure.Kind)
		}
		fmt.Fprintf(&sb, "**No answer** (%s)\n\n```json\n%s\n```\n", kind, service.AnswerText(resp.Answer))
	}

	if resp.DirectAnswer != nil {
		fmt.Fprintf(&sb, "\n> Search engine answer: %s\n", resp.DirectAnswer.Answer)
	}

	if len(resp.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for i, src := range resp.Sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, title, src.URL)
		}
	}

	fmt.Fprintf(&sb, "\n---\n*%s, %s, session %s*\n",
		resp.Branch, resp.Duration.Round(10*time.Millisecond), resp.SessionID)

	return sb.String()
}

func historyMarkdown(records []domain.HistoryRecord) string {
	if len(records) == 0 {
		return "History is empty.\n"
	}

	var sb strings.Builder
	sb.WriteString("| When | Question | Answer | Branch | Provider |\n")
	sb.WriteString("|---|---|---|---|---|\n")

	for _, r := range records {
		answer := r.Answer
		if !r.Success {
			answer = "✗ " + answer
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			cell(r.Question, 60),
			cell(answer, 80),
			r.Branch,
			r.Provider,
		)
	}

	return sb.String()
}

// cell - текст для ячейки markdown-таблицы
func cell(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", `\|`)

	runes := []rune(s)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes-1]) + "…"
	}
	return s
}
