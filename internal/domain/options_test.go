package domain

import (
	"errors"
	"testing"
	"time"
)

func TestProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		want     bool
	}{
		{"serper is valid", "serper", true},
		{"tavily is valid", "tavily", true},
		{"searxng is valid", "searxng", true},
		{"empty is invalid", "", false},
		{"google is invalid", "google", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.provider.IsValid(); got != tt.want {
				t.Errorf("Provider.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProvider_SuppliesDirectAnswer(t *testing.T) {
	if !ProviderSerper.SuppliesDirectAnswer() {
		t.Error("serper should supply direct answers")
	}
	if ProviderTavily.SuppliesDirectAnswer() || ProviderSearXNG.SuppliesDirectAnswer() {
		t.Error("generic providers should not supply direct answers")
	}
}

func TestOptions_Validate(t *testing.T) {
	valid := DefaultOptions()

	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr error
	}{
		{"defaults", func(o *Options) {}, nil},
		{"invalid provider", func(o *Options) { o.Provider = "bing" }, ErrInvalidProvider},
		{"zero results", func(o *Options) { o.NumResults = 0 }, ErrInvalidNumResults},
		{"too many results", func(o *Options) { o.NumResults = MaxNumResults + 1 }, ErrInvalidNumResults},
		{"zero timeout", func(o *Options) { o.Timeout = 0 }, ErrInvalidTimeout},
		{"negative model index", func(o *Options) { o.ModelIndex = -1 }, ErrInvalidModelIndex},
		{"fast force ai", func(o *Options) { o.ParseArticles = false; o.ForceAI = true }, nil},
		{"short timeout", func(o *Options) { o.Timeout = time.Millisecond }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			if err := opts.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Options.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptions_Fast(t *testing.T) {
	opts := DefaultOptions()
	if opts.Fast() {
		t.Error("default options should not be fast")
	}
	opts.ParseArticles = false
	if !opts.Fast() {
		t.Error("ParseArticles=false should be fast")
	}
}
