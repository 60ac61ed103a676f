package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kitbuilder587/webqa/internal/config"
	"github.com/kitbuilder587/webqa/internal/domain"
)

func TestApplyFlags(t *testing.T) {
	defer func() {
		provider, numResults, fastMode, articleTimeout = "", 0, false, 0
	}()

	if err := askCmd.ParseFlags([]string{
		"--provider", "tavily",
		"-n", "7",
		"--fast",
		"--article-timeout", "3s",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	c := &config.Config{
		Search: config.SearchConfig{Provider: "serper"},
		Ask: config.AskConfig{
			NumResults:     5,
			ParseArticles:  true,
			ArticleTimeout: 10 * time.Second,
			ModelIndex:     1,
		},
	}
	applyFlags(askCmd, c)

	opts := c.Options()
	if opts.Provider != domain.ProviderTavily {
		t.Errorf("Provider = %s, want tavily", opts.Provider)
	}
	if opts.NumResults != 7 {
		t.Errorf("NumResults = %d, want 7", opts.NumResults)
	}
	if opts.ParseArticles {
		t.Error("ParseArticles should be false with --fast")
	}
	if opts.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", opts.Timeout)
	}
	if opts.ModelIndex != 1 {
		t.Errorf("ModelIndex = %d, unchanged flag must keep env value", opts.ModelIndex)
	}
}

func TestVersionCommand(t *testing.T) {
	SetBuild("test-build")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(out.String(), "webqa "+version+" (test-build)") {
		t.Errorf("version output = %q", out.String())
	}
}
