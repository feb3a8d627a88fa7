// Package web provides HTTP fetching and HTML extraction tools.
package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/toolgate/backend/internal/shared/types"
)

// Config bounds web operations.
type Config struct {
	Timeout         time.Duration
	RetryCount      int
	MaxOutputLength int
}

// Provider implements the web toolset over a shared resty client.
type Provider struct {
	cfg    Config
	client *resty.Client
}

// New creates a web provider with retry support.
func New(cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.MaxOutputLength <= 0 {
		cfg.MaxOutputLength = 1000000
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Provider{cfg: cfg, client: client}
}

// Descriptors returns the web toolset.
func (p *Provider) Descriptors() []types.ToolDescriptor {
	return []types.ToolDescriptor{
		{
			Name:        "web_fetch",
			Description: "Fetch a URL and return status, headers, and body",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
				{Name: "headers", Type: "object", Description: "Extra request headers", Required: false},
			},
			Handler: p.fetch,
		},
		{
			Name:        "web_extract",
			Description: "Extract text from HTML using a CSS selector",
			Mode:        types.ModeLocal,
			Parameters: []types.Parameter{
				{Name: "html", Type: "string", Description: "HTML document to parse", Required: false},
				{Name: "url", Type: "string", Description: "URL to fetch and parse instead of html", Required: false},
				{Name: "selector", Type: "string", Description: "CSS selector", Required: true},
				{Name: "attribute", Type: "string", Description: "Attribute to read instead of text", Required: false},
			},
			Handler: p.extract,
		},
	}
}

func (p *Provider) fetch(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return types.Fail(types.ErrKindExecutionError, "url must be a non-empty string"), nil
	}

	req := p.client.R().SetContext(ctx)
	if headers, ok := args["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.SetHeader(k, s)
			}
		}
	}

	resp, err := req.Get(url)
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("fetch failed: %v", err)), nil
	}

	body := resp.String()
	truncated := false
	if len(body) > p.cfg.MaxOutputLength {
		body = body[:p.cfg.MaxOutputLength] + "... [truncated]"
		truncated = true
	}

	headers := map[string]interface{}{}
	for k, v := range resp.Header() {
		headers[k] = strings.Join(v, ", ")
	}

	result := types.OK(map[string]interface{}{
		"status_code":  resp.StatusCode(),
		"body":         body,
		"headers":      headers,
		"content_type": resp.Header().Get("Content-Type"),
	})
	result.Truncated = truncated
	return result, nil
}

func (p *Provider) extract(ctx context.Context, args map[string]interface{}) (*types.ExecutionResult, error) {
	selector, _ := args["selector"].(string)
	if selector == "" {
		return types.Fail(types.ErrKindExecutionError, "selector must be a non-empty string"), nil
	}

	html, _ := args["html"].(string)
	if html == "" {
		url, _ := args["url"].(string)
		if url == "" {
			return types.Fail(types.ErrKindExecutionError, "either html or url is required"), nil
		}
		resp, err := p.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("fetch failed: %v", err)), nil
		}
		html = resp.String()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.Fail(types.ErrKindExecutionError, fmt.Sprintf("failed to parse HTML: %v", err)), nil
	}

	attribute, _ := args["attribute"].(string)
	matches := make([]string, 0)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if attribute != "" {
			if val, exists := s.Attr(attribute); exists {
				matches = append(matches, val)
			}
			return
		}
		matches = append(matches, strings.TrimSpace(s.Text()))
	})

	return types.OK(map[string]interface{}{
		"selector": selector,
		"count":    len(matches),
		"matches":  matches,
	}), nil
}
