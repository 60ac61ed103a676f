package domain

import (
	"strings"
	"time"
)

const MaxQuestionLength = 1000

type AskRequest struct {
	// ChatID - откуда пришёл вопрос (0 для CLI)
	ChatID   int64
	Question string
	Options  Options
}

func (q *AskRequest) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}

	if len(q.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}

	if err := q.Options.Validate(); err != nil {
		return err
	}

	return nil
}

func (q *AskRequest) Sanitize() {
	q.Question = strings.TrimSpace(q.Question)
	if len(q.Question) > MaxQuestionLength {
		q.Question = q.Question[:MaxQuestionLength]
	}
}

type AskResponse struct {
	SessionID    string
	Question     string
	Answer       Answer
	Branch       string
	DirectAnswer *DirectAnswer
	Sources      []SearchResult
	Duration     time.Duration
}

// HistoryRecord - сохранённый ответ на вопрос.
type HistoryRecord struct {
	ID         string
	ChatID     int64
	Question   string
	Provider   Provider
	Branch     string
	Success    bool
	Answer     string
	SourceURLs []string
	DurationMs int64
	CreatedAt  time.Time
}
