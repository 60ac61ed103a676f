package telegram

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kitbuilder587/webqa/internal/domain"
)

func TestFormatAnswer(t *testing.T) {
	resp := &domain.AskResponse{
		Answer: domain.Ok("Tony Stark is <Iron Man>."),
		Branch: "full_pipeline",
		Sources: []domain.SearchResult{
			{Title: "Iron Man - Wikipedia", URL: "https://www.wikipedia.org/wiki/Iron_Man"},
		},
	}

	result := FormatAnswer(resp)

	if !strings.Contains(result, "Tony Stark is &lt;Iron Man&gt;.") {
		t.Errorf("FormatAnswer() should contain escaped answer, got %q", result)
	}
	if !strings.Contains(result, "Источники:") {
		t.Error("FormatAnswer() should contain sources section")
	}
	if !strings.Contains(result, `<a href="https://www.wikipedia.org/wiki/Iron_Man">wikipedia.org</a>`) {
		t.Errorf("FormatAnswer() should link source by domain, got %q", result)
	}
	if strings.Contains(result, "<i>") {
		t.Error("full pipeline answer should have no branch indicator")
	}
}

func TestFormatAnswer_DirectAnswer(t *testing.T) {
	resp := &domain.AskResponse{
		Answer:       domain.Ok("Iron Man is Tony Stark."),
		Branch:       "direct_rephrase",
		DirectAnswer: &domain.DirectAnswer{Title: "Iron Man", Answer: "Tony Stark"},
	}

	result := FormatAnswer(resp)

	if !strings.Contains(result, "Быстрый ответ поисковика:</b> Tony Stark") {
		t.Errorf("FormatAnswer() should contain direct answer, got %q", result)
	}
	if !strings.Contains(result, "перефразирован") {
		t.Error("FormatAnswer() should mark direct rephrase branch")
	}
}

func TestFormatAnswer_Failure(t *testing.T) {
	payload := json.RawMessage(`{"error":"Model is currently loading"}`)
	resp := &domain.AskResponse{
		Answer: domain.Fail[string](domain.NewFailure(domain.FailureRetryExhausted, payload, errors.New("loading"))),
	}

	result := FormatAnswer(resp)

	if !strings.Contains(result, "Не удалось получить ответ") {
		t.Error("FormatAnswer() should report failure")
	}
	if !strings.Contains(result, "retry_exhausted") {
		t.Error("FormatAnswer() should contain failure kind")
	}
	if !strings.Contains(result, "<code>{&#34;error&#34;:&#34;Model is currently loading&#34;}</code>") {
		t.Errorf("FormatAnswer() should contain escaped payload, got %q", result)
	}
}

func TestFormatDetails(t *testing.T) {
	resp := &domain.AskResponse{
		SessionID:    "abc-123",
		Question:     "who is iron man?",
		Branch:       "seeded_full",
		Duration:     1240 * time.Millisecond,
		DirectAnswer: &domain.DirectAnswer{Title: "Iron Man", Answer: "Tony Stark"},
		Sources: []domain.SearchResult{
			{Title: "Iron Man", URL: "https://example.com/a?x=1&y=2", Description: "Tony <Stark>"},
		},
	}

	result := FormatDetails(resp)

	for _, want := range []string{
		"<code>seeded_full</code>",
		"1.2s",
		"<code>abc-123</code>",
		"<b>Iron Man</b>\nTony Stark",
		`<a href="https://example.com/a?x=1&amp;y=2">Iron Man</a>`,
		"Tony &lt;Stark&gt;",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatDetails() missing %q in %q", want, result)
		}
	}

	resp.Sources = nil
	if !strings.Contains(FormatDetails(resp), "Источники не использовались.") {
		t.Error("FormatDetails() should note missing sources")
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); got != "История пуста." {
		t.Errorf("FormatHistory(nil) = %q", got)
	}

	records := []domain.HistoryRecord{
		{
			Question:   "Кто такой Тони Старк?",
			Answer:     "Железный человек",
			Success:    true,
			DurationMs: 1500,
			CreatedAt:  time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
		},
		{
			Question: "Сломанный вопрос",
			Answer:   `{"error":"boom"}`,
		},
	}

	result := FormatHistory(records)

	if !strings.Contains(result, "1. ✓ <b>Кто такой Тони Старк?</b>") {
		t.Errorf("FormatHistory() = %q", result)
	}
	if !strings.Contains(result, "2. ✗") {
		t.Error("FormatHistory() should mark failed answers")
	}
	if !strings.Contains(result, "02.01.2026 15:04, 1.5s") {
		t.Errorf("FormatHistory() should contain date and duration, got %q", result)
	}
	if !strings.Contains(result, "Всего: 2") {
		t.Error("FormatHistory() should contain total count")
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "link tag",
			text: `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
		},
		{
			name: "bold tag",
			text: `Some text <b>bold text here</b> more text`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, 30)

			for i, part := range parts {
				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},
		{`<a href="url">text</a>`, 15, false},
		{`text <b>bold</b>`, 0, false},
		{`text <b>bold</b>`, 6, true},
		{`text <b>bold</b>`, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"короткий", 20, "короткий"},
		{"Железный человек", 9, "Железный…"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncateText(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateText() = %q, want %q", got, tt.want)
			}
		})
	}
}
