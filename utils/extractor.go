package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	ierr "github.com/yourusername/invoice-desk/errors"
	"go.uber.org/zap"
)

// ExtractedCustomer is one customer record pulled out of a free-form line.
type ExtractedCustomer struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	PreCode *string `json:"preCode,omitempty"`
}

// CustomerExtractorInterface turns raw lines into customer records, one per
// line and in the same order.
type CustomerExtractorInterface interface {
	Extract(ctx context.Context, lines []string, includePre bool) ([]ExtractedCustomer, error)
}

const maxRawResponse = 2000

type AIExtractorConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// AIExtractor calls an OpenAI-compatible chat completions endpoint.
type AIExtractor struct {
	client  *retryablehttp.Client
	apiKey  string
	baseURL string
	model   string
}

func NewAIExtractor(cfg AIExtractorConfig, log *zap.Logger) *AIExtractor {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.Logger = retryLogger{log.Sugar()}

	return &AIExtractor{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func extractionPrompt(includePre bool) string {
	var b strings.Builder
	b.WriteString("You extract delivery details from customer lines. ")
	b.WriteString("Each input line is one customer, usually formatted as name:phone:address")
	if includePre {
		b.WriteString(":PRE code")
	}
	b.WriteString(" but the format may be loose. ")
	b.WriteString("Return only a JSON array with exactly one object per input line, in input order. ")
	b.WriteString(`Each object has string fields "name", "phone" and "address"`)
	if includePre {
		b.WriteString(` and "preCode", the 7 digit code after PRE or null if there is none`)
	}
	b.WriteString(". Do not add commentary.")
	return b.String()
}

func (e *AIExtractor) Extract(ctx context.Context, lines []string, includePre bool) ([]ExtractedCustomer, error) {
	if e.apiKey == "" {
		return nil, ierr.NewError("AI API key not configured").
			WithHint("AI extraction is not configured").
			Mark(ierr.ErrUnavailable)
	}

	payload, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt(includePre)},
			{Role: "user", Content: strings.Join(lines, "\n")},
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("AI extraction service is unavailable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read AI response").
			Mark(ierr.ErrHTTPClient)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewError(fmt.Sprintf("AI service returned status %d", resp.StatusCode)).
			WithHint("AI extraction failed").
			WithReportableDetails(map[string]any{
				"status":      resp.StatusCode,
				"rawResponse": truncate(string(body), maxRawResponse),
			}).
			Mark(ierr.ErrHTTPClient)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil || len(chat.Choices) == 0 {
		if err == nil {
			err = fmt.Errorf("response has no choices")
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to parse AI response").
			WithReportableDetails(map[string]any{"rawResponse": truncate(string(body), maxRawResponse)}).
			Mark(ierr.ErrHTTPClient)
	}

	content := chat.Choices[0].Message.Content
	customers, err := ParseExtraction(content)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse AI response").
			WithReportableDetails(map[string]any{"rawResponse": truncate(content, maxRawResponse)}).
			Mark(ierr.ErrHTTPClient)
	}
	if !includePre {
		for i := range customers {
			customers[i].PreCode = nil
		}
	}
	return customers, nil
}

// ParseExtraction decodes a JSON array of customers, tolerating markdown
// code fences and numeric values where strings are expected.
func ParseExtraction(text string) ([]ExtractedCustomer, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse extraction JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse extraction JSON: unexpected content after array")
	}

	customers := make([]ExtractedCustomer, len(raw))
	for i, item := range raw {
		customers[i] = ExtractedCustomer{
			Name:    stringField(item["name"]),
			Phone:   stringField(item["phone"]),
			Address: stringField(item["address"]),
		}
		if code := stringField(item["preCode"]); code != "" {
			customers[i].PreCode = &code
		}
	}
	return customers, nil
}

func stringField(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// RuleExtractor splits lines on ':' into name, phone, address and PRE code.
// It needs no network access.
type RuleExtractor struct{}

func (RuleExtractor) Extract(_ context.Context, lines []string, includePre bool) ([]ExtractedCustomer, error) {
	customers := make([]ExtractedCustomer, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, fieldSeparator)
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		c := ExtractedCustomer{Name: fields[0]}
		if len(fields) > 1 {
			c.Phone = fields[1]
		}
		if len(fields) > 2 {
			c.Address = fields[2]
		}
		if includePre && len(fields) > preCodeField && fields[preCodeField] != "" {
			code := fields[preCodeField]
			c.PreCode = &code
		}
		customers[i] = c
	}
	return customers, nil
}

// retryLogger adapts zap to retryablehttp's leveled logger.
type retryLogger struct {
	l *zap.SugaredLogger
}

func (r retryLogger) Error(msg string, keysAndValues ...interface{}) { r.l.Errorw(msg, keysAndValues...) }
func (r retryLogger) Info(msg string, keysAndValues ...interface{})  { r.l.Debugw(msg, keysAndValues...) }
func (r retryLogger) Debug(msg string, keysAndValues ...interface{}) { r.l.Debugw(msg, keysAndValues...) }
func (r retryLogger) Warn(msg string, keysAndValues ...interface{})  { r.l.Warnw(msg, keysAndValues...) }
