package passage

import (
	"strings"

	"github.com/kitbuilder587/webqa/internal/domain"
)

const (
	DefaultMinLength = 3000
	DefaultMaxLength = 15000
)

type CombineOptions struct {
	MinLength int
	MaxLength int
	// Filter отбрасывает статьи, в которых не нашлось описание из выдачи
	Filter bool
}

func DefaultCombineOptions() CombineOptions {
	return CombineOptions{
		MinLength: DefaultMinLength,
		MaxLength: DefaultMaxLength,
		Filter:    true,
	}
}

// WindowLength - длина окна на одну статью.
// XXX: считается от количества статей, а не от их суммарной длины, поэтому
// на практике почти всегда равна MinLength. Формула сохранена как есть.
func WindowLength(articleCount int, opts CombineOptions) int {
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	window := articleCount / maxLen
	if window < opts.MinLength {
		window = opts.MinLength
	}
	return window
}

// Combine склеивает пары (статья, результат) в один контекст. Пары берутся
// по позиции до конца более короткой последовательности.
func Combine(articles []string, results []domain.SearchResult, opts CombineOptions) string {
	window := WindowLength(len(articles), opts)

	n := len(articles)
	if len(results) < n {
		n = len(results)
	}

	records := make([]string, 0, n)
	for i := 0; i < n; i++ {
		article, result := articles[i], results[i]
		m := NewMatcher(result.Description)

		if opts.Filter && !m.Match(article) {
			continue
		}

		records = append(records, "Title: "+result.Title+
			"\nDescription: "+result.Description+
			"\nBody: "+m.Trim(article, window))
	}

	return strings.Join(records, "\n\n")
}
