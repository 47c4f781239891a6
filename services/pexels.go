package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const PexelsURL = "https://api.pexels.com"

type PexelsConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// PexelsClient looks up stock destination photos.
type PexelsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewPexelsClient(cfg PexelsConfig) *PexelsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PexelsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PexelsClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With("component", "pexels"),
	}
}

// StockImage returns the large landscape URL of the first photo matching keyword.
func (c *PexelsClient) StockImage(ctx context.Context, keyword string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("pexels API key not configured")
	}

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pexels error (%d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		Photos []struct {
			Src struct {
				Large string `json:"large"`
			} `json:"src"`
		} `json:"photos"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse pexels response: %w", err)
	}
	if len(out.Photos) == 0 || out.Photos[0].Src.Large == "" {
		return "", fmt.Errorf("no photo for %q: %w", keyword, ErrNoResult)
	}
	return out.Photos[0].Src.Large, nil
}
