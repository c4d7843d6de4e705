// Package inference wraps the remote model endpoints behind a uniform
// gateway. Callers never receive an error: any failed or unparseable call
// degrades to a fixed, documented fallback result for that capability, so
// the analysis pipeline always has a structurally valid result to reduce
// over. Failures are logged, never retried (single attempt per call).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Capability identifies a logical model endpoint.
type Capability string

const (
	CapabilityDeepfakeClassify  Capability = "deepfake-classify"
	CapabilitySpeechToText      Capability = "speech-to-text"
	CapabilitySentimentClassify Capability = "sentiment-classify"
)

// DefaultTimeout bounds a single inference call when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// FallbackTranscript is the canned transcript used when the speech endpoint
// cannot be reached or returns no text.
const FallbackTranscript = "This is a sample transcript of the video content. The speaker discusses important topics related to the subject matter."

// LabelScore is one classification label with its confidence in [0,1].
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is the output of one gateway call. Either a real endpoint result or
// the capability's fallback; both are structurally identical to the caller.
// Fallback marks degraded results so the pipeline can record them.
type Result struct {
	Labels   []LabelScore
	Text     string
	Fallback bool
}

// Invoker is the gateway contract the analysis components depend on.
type Invoker interface {
	Invoke(ctx context.Context, capability Capability, payload string) Result
}

// Config holds gateway endpoint configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	DeepfakeModel  string
	SpeechModel    string
	SentimentModel string
	Timeout        time.Duration
}

// Gateway calls remote inference endpoints over HTTPS with a bearer
// credential. Request shape is {"inputs": payload}; response shape varies by
// capability and is parsed strictly, with anything unexpected mapped to the
// capability's fallback.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGateway creates an inference gateway.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Models returns the configured model identifiers, for report metadata.
func (g *Gateway) Models() []string {
	return []string{g.cfg.DeepfakeModel, g.cfg.SpeechModel, g.cfg.SentimentModel}
}

// Invoke calls the endpoint for the capability and returns its result, or the
// capability's fallback on any failure. It never returns an error.
func (g *Gateway) Invoke(ctx context.Context, capability Capability, payload string) Result {
	model := g.model(capability)
	if model == "" || g.cfg.APIKey == "" {
		g.logger.Warn("inference endpoint not configured, using fallback",
			zap.String("capability", string(capability)))
		return fallbackFor(capability)
	}

	body, err := g.call(ctx, model, payload)
	if err != nil {
		g.logger.Warn("inference call failed, using fallback",
			zap.String("capability", string(capability)),
			zap.String("model", model),
			zap.Error(err))
		return fallbackFor(capability)
	}

	result, err := parse(capability, body)
	if err != nil {
		g.logger.Warn("inference response unparseable, using fallback",
			zap.String("capability", string(capability)),
			zap.String("model", model),
			zap.Error(err))
		return fallbackFor(capability)
	}
	return result
}

func (g *Gateway) model(capability Capability) string {
	switch capability {
	case CapabilityDeepfakeClassify:
		return g.cfg.DeepfakeModel
	case CapabilitySpeechToText:
		return g.cfg.SpeechModel
	case CapabilitySentimentClassify:
		return g.cfg.SentimentModel
	default:
		return ""
	}
}

func (g *Gateway) call(ctx context.Context, model, payload string) ([]byte, error) {
	reqBody, err := json.Marshal(map[string]string{"inputs": payload})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/"+model, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// parse maps a raw endpoint response to a Result. Classification endpoints
// return either [{label,score},...] or the nested [[{label,score},...]];
// transcription returns {"text": ...}. Anything else is an error, which the
// caller converts to the fallback.
func parse(capability Capability, body []byte) (Result, error) {
	switch capability {
	case CapabilitySpeechToText:
		var out struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return Result{}, fmt.Errorf("unmarshal transcription: %w", err)
		}
		if out.Text == "" {
			return Result{}, fmt.Errorf("empty transcription text")
		}
		return Result{Text: out.Text}, nil

	case CapabilityDeepfakeClassify, CapabilitySentimentClassify:
		labels, err := parseLabels(body)
		if err != nil {
			return Result{}, err
		}
		return Result{Labels: labels}, nil

	default:
		return Result{}, fmt.Errorf("unknown capability %q", capability)
	}
}

func parseLabels(body []byte) ([]LabelScore, error) {
	var flat []LabelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return flat, nil
	}
	var nested [][]LabelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	return nil, fmt.Errorf("unexpected classification shape")
}

// fallbackFor returns the fixed fallback result for a capability. These are
// deterministic placeholder results ("likely real", neutral-positive
// sentiment, canned transcript) so the product still produces a report when
// the third-party API is unavailable.
func fallbackFor(capability Capability) Result {
	switch capability {
	case CapabilityDeepfakeClassify:
		return Result{Labels: []LabelScore{{Label: "REAL", Score: 0.85}}, Fallback: true}
	case CapabilitySpeechToText:
		return Result{Text: FallbackTranscript, Fallback: true}
	case CapabilitySentimentClassify:
		return Result{Labels: []LabelScore{
			{Label: "POSITIVE", Score: 0.6},
			{Label: "NEGATIVE", Score: 0.1},
		}, Fallback: true}
	default:
		return Result{Fallback: true}
	}
}
