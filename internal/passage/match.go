// Package passage выбирает и обрезает фрагменты статей вокруг описания из поисковой выдачи
// и собирает из них единый контекст для extractive QA.
package passage

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// три и более экранированных точки подряд = обрезка текста провайдером
var ellipsisRun = regexp.MustCompile(`(\\\.){3,}`)

// Matcher ищет нечёткое вхождение описания в статью.
type Matcher struct {
	re      *regexp.Regexp
	descLen int
}

func NewMatcher(description string) *Matcher {
	pattern := ellipsisRun.ReplaceAllString(regexp.QuoteMeta(description), ".+")

	// невалидный UTF-8 в описании не компилируется, такой матчер ничего не находит
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}

	return &Matcher{
		re:      re,
		descLen: utf8.RuneCountInString(description),
	}
}

func (m *Matcher) Match(article string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(article)
}

// Trim вырезает окно длины около windowLength символов вокруг первого вхождения.
// Без вхождения возвращает первые windowLength символов статьи.
func (m *Matcher) Trim(article string, windowLength int) string {
	var loc []int
	if m.re != nil {
		loc = m.re.FindStringIndex(article)
	}
	if loc == nil {
		return prefix(article, windowLength)
	}

	d := utf8.RuneCountInString(article[:loc[0]])
	half := floorDiv(windowLength-d+m.descLen, 2)

	start := d - half
	if start < 0 {
		start = 0
	}
	end := start + half + m.descLen + half

	trimmed := sliceRunes([]rune(article), start, end)

	// первое и два последних слова обычно обрезаны посередине
	tokens := strings.Split(trimmed, " ")
	if len(tokens) <= 3 {
		return ""
	}
	return strings.Join(tokens[1:len(tokens)-2], " ")
}

func Contains(article, description string) bool {
	return NewMatcher(description).Match(article)
}

func Trim(article, description string, windowLength int) string {
	return NewMatcher(description).Trim(article, windowLength)
}

func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return sliceRunes([]rune(s), 0, n)
}

// sliceRunes режет как срез в питоне: границы насыщаются, пустой результат вместо паники
func sliceRunes(r []rune, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
