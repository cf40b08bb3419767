// Package ai wraps the Gemini API for the two collaborators the pipeline
// consumes: header-to-field suggestions and image transcription.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"manifest/internal"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("no response from Gemini AI API")

// generateFunc sends the parts and returns the first text part of the reply.
type generateFunc func(ctx context.Context, parts ...genai.Part) (string, error)

type Client struct {
	client   *genai.Client
	generate generateFunc
	limiter  *RateLimiter
	timeout  time.Duration
	logger   *zap.Logger
}

type Options struct {
	APIKey  string
	Model   string
	RPS     int
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("init Gemini client: %w", err)
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	model := gc.GenerativeModel(modelName)
	model.SetTemperature(0)

	c := newClient(func(ctx context.Context, parts ...genai.Part) (string, error) {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("error calling Gemini AI API: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", ErrEmptyResponse
		}
		content, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return "", errors.New("unexpected response format from Gemini AI API")
		}
		return string(content), nil
	}, opts)
	c.client = gc
	return c, nil
}

func newClient(gen generateFunc, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		generate: gen,
		limiter:  NewRateLimiter(opts.RPS),
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) call(ctx context.Context, parts ...genai.Part) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	raw, err := c.generate(ctx, parts...)
	if err != nil {
		return "", err
	}
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return "", ErrEmptyResponse
	}
	return cleaned, nil
}

// MapField asks which of candidates the header denotes.
func (c *Client) MapField(ctx context.Context, header string, candidates []string) (internal.FieldSuggestion, error) {
	jsonStr, err := c.call(ctx, genai.Text(mappingPrompt(header, candidates)))
	if err != nil {
		return internal.FieldSuggestion{}, err
	}
	var s internal.FieldSuggestion
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return internal.FieldSuggestion{}, fmt.Errorf("parse mapping response: %w\nResponse: %s", err, jsonStr)
	}
	s.MappedField = strings.TrimSpace(s.MappedField)
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	c.logger.Debug("ai field suggestion",
		zap.String("header", header), zap.String("field", s.MappedField), zap.Float64("confidence", s.Confidence))
	return s, nil
}

// ExtractTextFromImage transcribes an image. With includeSchema the reply also
// carries shipmentData keyed by canonical field names.
func (c *Client) ExtractTextFromImage(ctx context.Context, image []byte, mimeType string, includeSchema bool) (internal.OCRResult, error) {
	if len(image) == 0 {
		return internal.OCRResult{}, errors.New("empty image")
	}
	fields := make([]string, 0, len(internal.CanonicalFields))
	for _, f := range internal.CanonicalFields {
		fields = append(fields, string(f))
	}
	jsonStr, err := c.call(ctx,
		genai.Text(visionPrompt(includeSchema, fields)),
		genai.Blob{MIMEType: mimeType, Data: image},
	)
	if err != nil {
		return internal.OCRResult{}, err
	}

	var res internal.OCRResult
	if err := json.Unmarshal([]byte(jsonStr), &res); err != nil {
		// Some replies are plain transcriptions despite the prompt.
		c.logger.Debug("vision reply was not JSON, using it as text", zap.Error(err))
		return internal.OCRResult{Text: jsonStr, Confidence: 0.5}, nil
	}
	if !includeSchema {
		res.ShipmentData = nil
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		res.Confidence = 0.5
	}
	return res, nil
}
