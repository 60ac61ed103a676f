package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/inference"
)

const systemPrompt = "Перепиши короткий ответ в одно формальное предложение, отвечающее на вопрос. Ответь только этим предложением, на языке вопроса."

type Config struct {
	AuthKey      string // готовый ключ авторизации (предпочтительно)
	ClientID     string // альтернатива: будет base64(id:secret)
	ClientSecret string
	Scope        string
	Model        string
	AuthURL      string
	BaseURL      string
	Timeout      time.Duration
	// InsecureTLS нужен для сертификата Минцифры, которого нет в системном хранилище
	InsecureTLS bool
}

// Client - Rephraser через GigaChat. Токен OAuth живёт ~30 минут и кешируется.
type Client struct {
	authKey string
	scope   string
	model   string
	authURL string
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	if cfg.Scope == "" {
		cfg.Scope = "GIGACHAT_API_PERS"
	}
	if cfg.Model == "" {
		cfg.Model = "GigaChat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureTLS {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	authKey := cfg.AuthKey
	if authKey == "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		authKey = base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	}

	return &Client{
		authKey: authKey,
		scope:   cfg.Scope,
		model:   cfg.Model,
		authURL: cfg.AuthURL,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		logger:  logger,
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (c *Client) Rephrase(ctx context.Context, question, answer string) domain.Result[domain.Generation] {
	if c.authKey == "" {
		return inference.FailGeneration(domain.FailureInvalidInput, nil, inference.ErrMissingAPIKey)
	}
	return c.rephrase(ctx, inference.RephraseChat(c.model, systemPrompt, question, answer), false)
}

func (c *Client) rephrase(ctx context.Context, chat inference.ChatRequest, isRetry bool) domain.Result[domain.Generation] {
	token, err := c.getToken(ctx)
	if err != nil {
		return inference.FailGeneration(domain.FailureTransport, nil, err)
	}

	body, err := json.Marshal(chat)
	if err != nil {
		return inference.FailGeneration(domain.FailureInvalidInput, nil, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return inference.FailGeneration(domain.FailureTransport, nil, fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	respBody, statusCode, err := inference.DoRequest(c.client, httpReq)
	if err != nil {
		return inference.FailGeneration(domain.FailureTransport, nil, err)
	}

	// при 401 пробуем обновить токен один раз
	if statusCode == http.StatusUnauthorized {
		if isRetry {
			return inference.ChatGeneration(statusCode, respBody, c.logger, "gigachat")
		}
		c.invalidateToken()
		return c.rephrase(ctx, chat, true)
	}

	return inference.ChatGeneration(statusCode, respBody, c.logger, "gigachat")
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-5*time.Minute)) {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// double-check после захвата лока
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-5*time.Minute)) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("scope", c.scope)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Basic "+c.authKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("RqUID", uuid.New().String()) // Сбер требует уникальный id запроса

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", inference.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("gigachat auth failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return "", inference.ErrAuthFailed
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if authResp.AccessToken == "" {
		return "", errors.Join(inference.ErrAuthFailed, errors.New("empty access token"))
	}

	c.accessToken = authResp.AccessToken
	c.tokenExpiry = time.UnixMilli(authResp.ExpiresAt)

	c.logger.Debug("gigachat token refreshed",
		zap.Time("expires", c.tokenExpiry),
	)

	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
}

var _ inference.Rephraser = (*Client)(nil)
