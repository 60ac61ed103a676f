package resolver

import "github.com/kitbuilder587/webqa/internal/domain"

// Branch - ветка дерева решений.
type Branch int

const (
	// BranchFullPipeline - прямого ответа нет: статьи, extractive QA, перефразирование
	BranchFullPipeline Branch = iota
	// BranchDirectRephrase - перефразируем готовый ответ провайдера
	BranchDirectRephrase
	// BranchSeededFast - полный пайплайн по описаниям, контекст начинается с прямого ответа
	BranchSeededFast
	// BranchSeededFull - то же, но со скачанными статьями
	BranchSeededFull
)

func (b Branch) String() string {
	switch b {
	case BranchDirectRephrase:
		return "direct_rephrase"
	case BranchSeededFast:
		return "seeded_fast"
	case BranchSeededFull:
		return "seeded_full"
	default:
		return "full_pipeline"
	}
}

// SelectBranch: fast учитывается только при forceAI.
func SelectBranch(hasDirect, forceAI, fast bool) Branch {
	switch {
	case !hasDirect:
		return BranchFullPipeline
	case !forceAI:
		return BranchDirectRephrase
	case fast:
		return BranchSeededFast
	default:
		return BranchSeededFull
	}
}

// FetchContent - нужно ли скачивать статьи для выбранной ветки.
// Сессия и резолвер обязаны решать это одинаково.
func FetchContent(hasDirect bool, opts domain.Options) bool {
	switch SelectBranch(hasDirect, opts.ForceAI, opts.Fast()) {
	case BranchDirectRephrase, BranchSeededFast:
		return false
	case BranchSeededFull:
		return true
	default:
		return opts.ParseArticles
	}
}
