package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/config"
	"github.com/kitbuilder587/webqa/internal/domain"
)

var (
	logLevel       string
	provider       string
	numResults     int
	modelIndex     int
	articleTimeout time.Duration
	fastMode       bool
	forceAI        bool
	filterArticles bool
)

// заполняются в PersistentPreRunE
var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "webqa",
	Short: "Answers questions from fresh web search results",
	Long: `webqa searches the web, pulls readable text out of the top pages and
asks an extractive QA model for the answer, then rephrases it into a sentence.

Modes:
  webqa ask QUESTION   Answer one question in the terminal
  webqa bot            Serve questions over Telegram
  webqa history        Show recently answered questions`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		c := config.FromEnv()
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		l, err := config.NewLogger(c.Log)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}

		cfg, logger = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log", "",
		"Log level: debug, info, warn, error (default from LOG_LEVEL)")
	flags.StringVarP(&provider, "provider", "p", "",
		"Search provider: serper, tavily, searxng (default from SEARCH_PROVIDER)")
	flags.IntVarP(&numResults, "num-results", "n", 0,
		fmt.Sprintf("Number of search results to use, %d..%d", domain.MinNumResults, domain.MaxNumResults))
	flags.IntVarP(&modelIndex, "model", "m", 0,
		"Index of the extractive QA model")
	flags.DurationVar(&articleTimeout, "article-timeout", 0,
		"Per-article download timeout")
	flags.BoolVar(&fastMode, "fast", false,
		"Use result descriptions instead of downloading articles")
	flags.BoolVar(&forceAI, "force-ai", false,
		"Ignore the search engine's direct answer")
	flags.BoolVar(&filterArticles, "filter", false,
		"Keep only articles that mention the question's words")
}

// applyFlags: флаг > переменная окружения > значение по умолчанию
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if provider != "" {
		c.Search.Provider = provider
	}
	if flags.Changed("num-results") {
		c.Ask.NumResults = numResults
	}
	if flags.Changed("model") {
		c.Ask.ModelIndex = modelIndex
	}
	if flags.Changed("article-timeout") {
		c.Ask.ArticleTimeout = articleTimeout
	}
	if flags.Changed("fast") {
		c.Ask.ParseArticles = !fastMode
	}
	if flags.Changed("force-ai") {
		c.Ask.ForceAI = forceAI
	}
	if flags.Changed("filter") {
		c.Ask.FilterArticles = filterArticles
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
