package domain

import "time"

type Provider string

const (
	ProviderSerper  Provider = "serper"
	ProviderTavily  Provider = "tavily"
	ProviderSearXNG Provider = "searxng"
)

func (p Provider) IsValid() bool {
	switch p {
	case ProviderSerper, ProviderTavily, ProviderSearXNG:
		return true
	}
	return false
}

// SuppliesDirectAnswer - умеет ли провайдер отдавать answer box.
func (p Provider) SuppliesDirectAnswer() bool { return p == ProviderSerper }

func (p Provider) String() string { return string(p) }

const (
	MinNumResults = 1
	MaxNumResults = 20
)

// Options - неизменяемая конфигурация одного вопроса.
type Options struct {
	Provider   Provider
	NumResults int
	// Timeout - таймаут загрузки одной статьи
	Timeout time.Duration
	// ParseArticles=false означает "fast": вместо статей берутся описания из выдачи
	ParseArticles  bool
	ModelIndex     int
	ForceAI        bool
	FilterArticles bool
}

func DefaultOptions() Options {
	return Options{
		Provider:      ProviderSerper,
		NumResults:    5,
		Timeout:       10 * time.Second,
		ParseArticles: true,
		ModelIndex:    0,
	}
}

func (o Options) Fast() bool { return !o.ParseArticles }

// Validate проверяет диапазоны. Верхнюю границу ModelIndex знает только
// inference-клиент, здесь отсекаем отрицательные значения.
func (o Options) Validate() error {
	if !o.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if o.NumResults < MinNumResults || o.NumResults > MaxNumResults {
		return ErrInvalidNumResults
	}
	if o.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if o.ModelIndex < 0 {
		return ErrInvalidModelIndex
	}
	return nil
}
