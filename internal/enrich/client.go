package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds the summary provider settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat/completions endpoint for a short
// document summary.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

const systemPrompt = "You summarize scanned invoices and bills. " +
	"Reply with JSON only: {\"summary\": \"one short paragraph\"}."

// maxInputBytes caps how much OCR text is shipped upstream.
const maxInputBytes = 8 << 10

// Summarize asks the provider for a one-paragraph summary of text.
// Every failure path returns an Unavailable result; it never errors.
func (c *Client) Summarize(ctx context.Context, text string) Result {
	start := time.Now()

	input := text
	if len(input) > maxInputBytes {
		input = input[:maxInputBytes]
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": "Summarize this document:\n\n" + input},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Warn("enrich.summary.failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Result{Unavailable: true, Reason: err.Error()}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Result{Unavailable: true, Reason: "decode response: " + err.Error()}
	}
	if len(cc.Choices) == 0 {
		return Result{Unavailable: true, Reason: "no choices in response"}
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	if err := ValidateJSONAgainstSchema(BuildSummaryJSONSchema(), content); err != nil {
		c.log.Warn("enrich.summary.schema_mismatch", "error", err)
		return Result{Unavailable: true, Reason: "response failed validation"}
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return Result{Unavailable: true, Reason: "decode summary: " + err.Error()}
	}

	c.log.Info("enrich.summary.ok",
		"bytes", len(out.Summary),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: out.Summary}
}
