package cmd

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/config"
	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
	"github.com/kitbuilder587/webqa/internal/inference/gigachat"
	"github.com/kitbuilder587/webqa/internal/inference/openrouter"
	"github.com/kitbuilder587/webqa/internal/search/serper"
)

func TestNewProviders(t *testing.T) {
	c := &config.Config{
		Search: config.SearchConfig{
			Serper:  config.SerperConfig{APIKey: "serper-key"},
			SearXNG: config.SearXNGConfig{URL: "http://localhost:8888"},
		},
	}

	providers := newProviders(c, zap.NewNop())

	if len(providers) != 2 {
		t.Fatalf("providers = %d, want 2", len(providers))
	}
	if _, ok := providers[domain.ProviderTavily]; ok {
		t.Error("tavily built without a key")
	}
	if _, ok := providers[domain.ProviderSerper].(*serper.Client); !ok {
		t.Errorf("serper provider = %T, want *serper.Client", providers[domain.ProviderSerper])
	}
}

func TestNewRephraser(t *testing.T) {
	hf := inference.New(inference.Config{QAModels: []string{"m"}}, zap.NewNop(), nil)

	c := &config.Config{Inference: config.InferenceConfig{RephraseProvider: config.RephraseHuggingFace}}
	if got := newRephraser(c, hf, zap.NewNop()); got != inference.Rephraser(hf) {
		t.Errorf("rephraser = %T, want hugging face client", got)
	}

	c.Inference.RephraseProvider = config.RephraseOpenRouter
	c.OpenRouter.APIKey = "or-key"
	if _, ok := newRephraser(c, hf, zap.NewNop()).(*openrouter.Client); !ok {
		t.Error("rephraser should be openrouter client")
	}

	c.Inference.RephraseProvider = config.RephraseGigaChat
	c.GigaChat.AuthKey = "giga-key"
	if _, ok := newRephraser(c, hf, zap.NewNop()).(*gigachat.Client); !ok {
		t.Error("rephraser should be gigachat client")
	}
}

func TestNewApp_WithoutDatabase(t *testing.T) {
	c := config.FromEnv()
	c.Inference.APIKey = "hf-key"
	c.Search.Serper.APIKey = "serper-key"
	c.Database.URL = ""

	a, err := newApp(context.Background(), c, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if _, err := a.ask.History(context.Background(), 0, 10); err == nil {
		t.Error("History() should fail without a database")
	}
}
