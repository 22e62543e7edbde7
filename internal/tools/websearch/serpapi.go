// Package websearch implements the serpapi tool, which answers queries with
// Google results fetched through the SerpAPI search endpoint.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

const (
	defaultBaseURL = "https://serpapi.com/search"
	defaultEngine  = "google"

	// maxCacheSize limits cached responses to prevent unbounded memory growth
	maxCacheSize = 1000
)

// Config holds configuration for the SerpAPI search tool.
type Config struct {
	// APIKey authenticates against SerpAPI. Required.
	APIKey string `json:"api_key"`

	// BaseURL overrides the SerpAPI endpoint (tests point this at a fake).
	BaseURL string `json:"base_url,omitempty"`

	// Engine selects the SerpAPI engine. Default: google
	Engine string `json:"engine,omitempty"`

	// ResultLimit caps how many organic results are returned (0 = all).
	ResultLimit int `json:"result_limit,omitempty"`

	// CacheTTL is how long responses are cached, in seconds. Default: 300
	CacheTTL int `json:"cache_ttl,omitempty"`
}

type searchArgs struct {
	Query string `json:"query"`
}

type cacheEntry struct {
	content   string
	expiresAt time.Time
}

// SerpAPITool implements the agent Tool interface for web searching.
// Responses are cached by query with a TTL so repeated searches within one
// run do not burn API quota.
type SerpAPITool struct {
	config     *Config
	httpClient *http.Client
	cache      map[string]*cacheEntry
	cacheMu    sync.RWMutex
}

// New creates a SerpAPI search tool with the given configuration.
func New(config *Config) *SerpAPITool {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Engine == "" {
		config.Engine = defaultEngine
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 300
	}
	return &SerpAPITool{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: make(map[string]*cacheEntry),
	}
}

// Name returns the tool name for registration.
func (t *SerpAPITool) Name() string {
	return "serpapi"
}

// Description returns the tool description shown to the model.
func (t *SerpAPITool) Description() string {
	return "Use this tool to search the web."
}

// Schema returns the JSON schema for tool parameters.
func (t *SerpAPITool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query"}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

// Execute runs the search and returns the organic results as JSON.
func (t *SerpAPITool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in searchArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Query == "" {
		return "", fmt.Errorf("query is required")
	}
	if t.config.APIKey == "" {
		return "", fmt.Errorf("serpapi API key not configured")
	}

	if cached := t.getFromCache(in.Query); cached != "" {
		return cached, nil
	}

	articles, err := t.search(ctx, in.Query)
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format results: %w", err)
	}

	t.putInCache(in.Query, string(out))
	return string(out), nil
}

func (t *SerpAPITool) search(ctx context.Context, query string) ([]models.Article, error) {
	searchURL, err := url.Parse(t.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SerpAPI URL: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", t.config.APIKey)
	params.Set("engine", t.config.Engine)
	params.Set("q", query)
	searchURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var serpResp struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Source  string `json:"source"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &serpResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	limit := len(serpResp.OrganicResults)
	if t.config.ResultLimit > 0 && t.config.ResultLimit < limit {
		limit = t.config.ResultLimit
	}

	articles := make([]models.Article, 0, limit)
	for _, r := range serpResp.OrganicResults[:limit] {
		articles = append(articles, models.Article{
			Title:   r.Title,
			Source:  r.Source,
			Link:    r.Link,
			Snippet: r.Snippet,
		})
	}
	return articles, nil
}

func (t *SerpAPITool) getFromCache(query string) string {
	t.cacheMu.RLock()
	defer t.cacheMu.RUnlock()

	entry, ok := t.cache[query]
	if !ok || time.Now().After(entry.expiresAt) {
		return ""
	}
	return entry.content
}

func (t *SerpAPITool) putInCache(query, content string) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	now := time.Now()
	for k, v := range t.cache {
		if now.After(v.expiresAt) {
			delete(t.cache, k)
		}
	}

	for len(t.cache) >= maxCacheSize {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range t.cache {
			if oldestKey == "" || v.expiresAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.expiresAt
			}
		}
		if oldestKey == "" {
			break
		}
		delete(t.cache, oldestKey)
	}

	t.cache[query] = &cacheEntry{
		content:   content,
		expiresAt: now.Add(time.Duration(t.config.CacheTTL) * time.Second),
	}
}
