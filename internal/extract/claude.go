package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/resilience"
	"github.com/wedealize/sourcing-engine/pkg/anthropic"
)

const extractionSystemPrompt = `You extract product listings from supplier catalog text.
Respond with a JSON array only, no prose. Each element:
{"name": string, "sku": string, "price_min": number, "price_max": number,
 "currency": string, "moq": number, "specifications": {string: string}}
Omit fields you cannot determine. Return [] if no products are present.`

// ClaudeExtractor pulls product candidates out of catalog text using the
// Anthropic API.
type ClaudeExtractor struct {
	client  anthropic.Client
	model   string
	tokens  int64
	timeout time.Duration
}

// NewClaudeExtractor wires a TextExtractor backed by the Anthropic API.
func NewClaudeExtractor(client anthropic.Client, cfg config.AnthropicConfig) *ClaudeExtractor {
	return &ClaudeExtractor{
		client:  client,
		model:   cfg.Model,
		tokens:  cfg.MaxTokens,
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
	}
}

// Extract sends the text excerpt and parses the JSON array response. A
// malformed response is logged and yields no candidates; only transport
// failures surface as errors.
func (c *ClaudeExtractor) Extract(ctx context.Context, text string) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "extract products")

	resp, err := resilience.DoVal(ctx, retryCfg,
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return c.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     c.model,
				MaxTokens: c.tokens,
				System:    extractionSystemPrompt,
				Messages: []anthropic.Message{
					{Role: "user", Content: text},
				},
			})
		})
	if err != nil {
		return nil, eris.Wrap(err, "extract: anthropic request")
	}

	resp.Usage.LogCost(c.model, "extract")

	candidates, err := parseCandidates(resp.Text())
	if err != nil {
		zap.L().Warn("extract: malformed model response",
			zap.String("model", c.model),
			zap.Error(err),
		)
		return nil, nil
	}
	return candidates, nil
}

// parseCandidates tolerates fenced responses; models wrap JSON in markdown
// fences often enough that stripping them is cheaper than reprompting.
func parseCandidates(raw string) ([]Candidate, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, eris.Wrap(err, "extract: decode candidates")
	}
	return candidates, nil
}
