// Package insight asks a remote chat-completion provider for commentary on
// the sanitized analysis summary. Only analysis.Summary ever leaves the
// machine.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/logger"
)

// DefaultEndpoint is the OpenAI chat completions URL.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are a privacy-focused assistant. Only use the aggregated metrics provided. " +
	"Never ask for or infer raw URLs or personal identifiers."

const userInstructions = "\nReturn: (1) three short insights, (2) three actions to improve privacy/browsing, " +
	"(3) a one-line privacy checklist."

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 2048

// Generator produces insight text for a summary.
type Generator interface {
	Generate(ctx context.Context, s analysis.Summary, apiKey string) (string, error)
}

// Options configures a Client.
type Options struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Log         *logger.Logger
}

// Client is a Generator backed by an OpenAI-compatible chat completions API.
// Requests are made once; failures are returned, never retried.
type Client struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
	log         *logger.Logger
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Client{
		endpoint:    opts.Endpoint,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		http:        &http.Client{Timeout: opts.Timeout},
		log:         opts.Log.Component("insight"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// Payload is the wire form of the summary sent to the provider.
type Payload struct {
	TopDomains    []analysis.SummarySite `json:"top_domains"`
	Stats         analysis.Stats         `json:"stats"`
	Personality   *string                `json:"personality"`
	Privacy       *string                `json:"privacy"`
	TimeframeDays *int                   `json:"timeframe_days"`
}

// NewPayload converts s, capping top domains at analysis.TopSitesLimit.
// Empty personality or privacy values are sent as null.
func NewPayload(s analysis.Summary) Payload {
	sites := s.TopSites
	if len(sites) > analysis.TopSitesLimit {
		sites = sites[:analysis.TopSitesLimit]
	}
	if sites == nil {
		sites = []analysis.SummarySite{}
	}

	p := Payload{
		TopDomains:    sites,
		Stats:         s.Stats,
		TimeframeDays: s.TimeframeDays,
	}
	if v := string(s.Personality); v != "" {
		p.Personality = &v
	}
	if v := string(s.Privacy); v != "" {
		p.Privacy = &v
	}
	return p
}

// buildMessages builds the system and user messages for s.
func buildMessages(s analysis.Summary) ([]chatMessage, error) {
	data, err := json.Marshal(NewPayload(s))
	if err != nil {
		return nil, err
	}
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Aggregated browsing summary: " + string(data) + userInstructions},
	}, nil
}

// Generate sends s to the provider and returns the response text.
func (c *Client) Generate(ctx context.Context, s analysis.Summary, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", &Error{Kind: KindMissingKey, Message: "no API key configured"}
	}

	messages, err := buildMessages(s)
	if err != nil {
		return "", &Error{Kind: KindDecode, Message: "encoding summary", Err: err}
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", &Error{Kind: KindDecode, Message: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("insight request failed")
		return "", &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: "reading response", Err: err}
	}

	c.log.WithField("status", resp.StatusCode).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("insight response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return "", &Error{Kind: KindStatus, Status: resp.StatusCode, Message: msg}
	}

	return ExtractText(respBody)
}

// ExtractText pulls the reply out of a chat completion body: the first
// choice's message content, else its legacy text field, else the whole body.
func ExtractText(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", &Error{Kind: KindEmpty, Message: "provider returned an empty body"}
	}

	var parsed struct {
		Choices []struct {
			Message *struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Kind: KindDecode, Message: "response is not JSON", Err: err}
	}

	if len(parsed.Choices) > 0 {
		first := parsed.Choices[0]
		if first.Message != nil && first.Message.Content != "" {
			return first.Message.Content, nil
		}
		if first.Text != "" {
			return first.Text, nil
		}
	}

	return string(body), nil
}
