package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

var (
	ErrInvalidURL = errors.New("invalid url")
)

var (
	ErrEmptyQuestion    = errors.New("empty question")
	ErrQuestionTooLong  = errors.New("question too long")
	ErrNoSearchResults  = errors.New("no search results")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrRateLimitReached = errors.New("rate limit reached")
)

var (
	ErrInvalidProvider   = errors.New("invalid search provider")
	ErrInvalidNumResults = errors.New("num results must be between 1 and 20")
	ErrInvalidTimeout    = errors.New("timeout must be positive")
	ErrInvalidModelIndex = errors.New("model index out of range")
)
