package domain

import (
	"net/url"
)

// SearchResult - один органический результат поиска.
// Порядок в срезе совпадает с ранжированием провайдера.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// только http/https с валидным хостом
func (r SearchResult) ValidateURL() error {
	if r.URL == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}

	if u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

func (r SearchResult) Domain() string {
	if r.URL == "" {
		return ""
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}

	host := u.Host
	if len(host) > 4 && host[:4] == "www." {
		host = host[4:]
	}

	return host
}

// Fallback - тело статьи, если контент страницы извлечь не удалось.
func (r SearchResult) Fallback() string {
	return r.Title + "\n" + r.Description
}

// DirectAnswer - готовый ответ из answer box провайдера.
type DirectAnswer struct {
	Title  string `json:"title"`
	Answer string `json:"answer"`
}

// Seed - строка, которой дополняется контекст при forceAI.
func (d DirectAnswer) Seed() string {
	return d.Title + " - " + d.Answer
}

// ParsedArticle держит тело статьи вместе с результатом, из которого оно получено,
// чтобы выравнивание не зависело от индексов.
type ParsedArticle struct {
	Result SearchResult
	Body   string
}

func SplitArticles(articles []ParsedArticle) ([]string, []SearchResult) {
	bodies := make([]string, len(articles))
	results := make([]SearchResult, len(articles))
	for i, a := range articles {
		bodies[i] = a.Body
		results[i] = a.Result
	}
	return bodies, results
}
