package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/learoder-max/Wishlist/internal/metrics"
	"github.com/learoder-max/Wishlist/internal/models"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `You are an intelligent shopping assistant.
Analyze the following product URL string and extract the likely product information based only on the text in the URL (path slugs, query parameters, domain name). Do not assume access to the page itself.

URL: %s

If the URL contains hints about the price, extract it as a number.
Infer the product title and a short description.
Infer the currency symbol if possible (default to $ if unknown but it looks like a US site).

Return JSON.`

// generator is the subset of *genai.Models used by GeminiAnalyzer.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer asks a Gemini model for a schema-constrained JSON guess.
type GeminiAnalyzer struct {
	gen      generator
	model    string
	timeout  time.Duration
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewGeminiAnalyzer creates an analyzer backed by the Gemini API.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, timeout time.Duration, logger *logrus.Logger, m *metrics.Metrics) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGeminiAnalyzer(client.Models, model, timeout, logger, m), nil
}

func newGeminiAnalyzer(gen generator, model string, timeout time.Duration, logger *logrus.Logger, m *metrics.Metrics) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiAnalyzer{
		gen:      gen,
		model:    model,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
		validate: validator.New(),
	}
}

// Model returns the model identifier sent with every request.
func (a *GeminiAnalyzer) Model() string { return a.model }

// productSchema is the response schema requested from the model.
func productSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString, Description: "The inferred name of the product"},
			"price":       {Type: genai.TypeNumber, Description: "The inferred price if visible in the URL, else null"},
			"currency":    {Type: genai.TypeString, Description: "Currency symbol like $, €, etc."},
			"description": {Type: genai.TypeString, Description: "A short inferred description"},
			"category":    {Type: genai.TypeString, Description: "Product category"},
		},
		Required: []string{"title"},
	}
}

// AnalyzeURL implements Analyzer.
func (a *GeminiAnalyzer) AnalyzeURL(ctx context.Context, url string) (*models.ParsedProduct, error) {
	start := time.Now()
	product, err := a.analyze(ctx, url)

	outcome := "success"
	if err != nil {
		outcome = string(ReasonOf(err))
	}
	a.metrics.Inference(outcome, time.Since(start))

	entry := a.logger.WithFields(logrus.Fields{
		"model":   a.model,
		"url":     url,
		"outcome": outcome,
		"elapsed": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("Product inference failed")
		return nil, err
	}
	entry.Debug("Product inferred")
	return product, nil
}

func (a *GeminiAnalyzer) analyze(ctx context.Context, url string) (product *models.ParsedProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			product, err = nil, fail(ReasonMalformed, fmt.Errorf("panic decoding response: %v", r))
		}
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(promptTemplate, url), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   productSchema(),
	}

	resp, err := a.gen.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fail(ReasonTimeout, err)
		}
		return nil, fail(ReasonTransport, err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return nil, fail(ReasonEmpty, nil)
	}

	return a.decode(text)
}

func (a *GeminiAnalyzer) decode(text string) (*models.ParsedProduct, error) {
	text = stripFence(text)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fail(ReasonMalformed, err)
	}
	if _, ok := raw["title"]; !ok {
		return nil, fail(ReasonSchema, errors.New("response is missing required field title"))
	}

	var p models.ParsedProduct
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fail(ReasonSchema, err)
	}
	p.Title = strings.TrimSpace(p.Title)
	if err := a.validate.Struct(&p); err != nil {
		return nil, fail(ReasonSchema, err)
	}
	return &p, nil
}

// responseText concatenates the non-thought text parts of the first
// candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
