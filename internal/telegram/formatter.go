package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/resolver"
)

const maxMessageLength = 4096 // лимит телеграма

func FormatAnswer(resp *domain.AskResponse) string {
	var sb strings.Builder

	if resp.Answer.Success {
		sb.WriteString(html.EscapeString(resp.Answer.Value))
	} else {
		sb.WriteString("Не удалось получить ответ от модели.")
		if resp.Answer.Failure != nil {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(string(resp.Answer.Failure.Kind))))
			sb.WriteString("\n<code>")
			sb.WriteString(html.EscapeString(truncateText(string(resp.Answer.Failure.Payload), 500)))
			sb.WriteString("</code>")
		}
	}

	if resp.DirectAnswer != nil {
		sb.WriteString("\n\n<b>Быстрый ответ поисковика:</b> ")
		sb.WriteString(html.EscapeString(resp.DirectAnswer.Answer))
	}

	if len(resp.Sources) > 0 {
		sb.WriteString("\n\n━━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("<b>Источники:</b>\n")

		for i, src := range resp.Sources {
			label := src.Domain()
			if label == "" {
				label = src.URL
			}
			escapedURL := html.EscapeString(src.URL)
			sb.WriteString(fmt.Sprintf("%d. %s\n   <a href=\"%s\">%s</a>\n",
				i+1,
				html.EscapeString(src.Title),
				escapedURL,
				html.EscapeString(truncateURL(label, 50)),
			))
		}
	}

	if indicator := branchIndicator(resp.Branch); indicator != "" {
		sb.WriteString("\n")
		sb.WriteString(indicator)
	}

	return sb.String()
}

func FormatHistory(records []domain.HistoryRecord) string {
	if len(records) == 0 {
		return "История пуста."
	}

	var sb strings.Builder
	sb.WriteString("<b>Последние вопросы:</b>\n\n")

	for i, r := range records {
		status := "✓"
		if !r.Success {
			status = "✗"
		}
		sb.WriteString(fmt.Sprintf("%d. %s <b>%s</b>\n   %s\n   <i>%s, %s</i>\n\n",
			i+1,
			status,
			html.EscapeString(r.Question),
			html.EscapeString(truncateText(r.Answer, 200)),
			r.CreatedAt.Format("02.01.2006 15:04"),
			(time.Duration(r.DurationMs) * time.Millisecond).Round(100*time.Millisecond),
		))
	}

	sb.WriteString(fmt.Sprintf("Всего: %d", len(records)))
	return sb.String()
}

// FormatDetails - разбор последнего ответа для /details.
func FormatDetails(resp *domain.AskResponse) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>Вопрос:</b> %s\n", html.EscapeString(resp.Question)))
	sb.WriteString(fmt.Sprintf("<b>Ветка:</b> <code>%s</code>\n", html.EscapeString(resp.Branch)))
	sb.WriteString(fmt.Sprintf("<b>Время:</b> %s\n", resp.Duration.Round(100*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("<b>Сессия:</b> <code>%s</code>\n", html.EscapeString(resp.SessionID)))

	if resp.DirectAnswer != nil {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n%s\n",
			html.EscapeString(resp.DirectAnswer.Title),
			html.EscapeString(resp.DirectAnswer.Answer),
		))
	}

	if len(resp.Sources) == 0 {
		sb.WriteString("\nИсточники не использовались.")
		return sb.String()
	}

	sb.WriteString("\n<b>Контекст собран из:</b>\n")
	for i, src := range resp.Sources {
		sb.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n   %s\n",
			i+1,
			html.EscapeString(src.URL),
			html.EscapeString(src.Title),
			html.EscapeString(truncateText(src.Description, 300)),
		))
	}
	return sb.String()
}

func branchIndicator(branch string) string {
	switch branch {
	case resolver.BranchDirectRephrase.String():
		return "<i>Ответ поисковика, перефразирован</i>"
	case resolver.BranchSeededFast.String():
		return "<i>Быстрый режим, с подсказкой поисковика</i>"
	case resolver.BranchSeededFull.String():
		return "<i>С подсказкой поисковика</i>"
	default:
		return ""
	}
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen-3] + "..."
}

// truncateText режет по рунам, чтобы не порвать кириллицу
func truncateText(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
