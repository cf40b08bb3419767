package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/ai"
	"manifest/internal/config"
	"manifest/internal/location"
	"manifest/internal/mapping"
)

// NewProcessorFromConfig builds the Processor the binaries use. The Gemini
// client is created only when a key is configured; without it the mapper
// runs on its static tiers and images produce ERROR records. The returned
// close func releases the client.
func NewProcessorFromConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Processor, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	closeFn := func() error { return nil }

	var suggester mapping.Suggester
	var vision Vision
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewClient(ctx, ai.Options{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			RPS:     cfg.AIRateLimitRPS,
			Timeout: cfg.AITimeout(),
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		vision = client
		if cfg.AIMappingEnabled {
			suggester = client
		}
		closeFn = client.Close
	} else {
		logger.Info("GEMINI_API_KEY not set, AI mapping and OCR disabled")
	}

	cache, err := mapping.NewCache(cfg.AICacheSize, cfg.AICacheTTL)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	proc := NewProcessor(ProcessorOptions{
		Mapper:          mapping.NewMapper(cfg.Mappings, suggester, cache, logger),
		Resolver:        location.NewResolver(),
		Vision:          vision,
		Logger:          logger,
		HeaderScanRows:  cfg.HeaderScanRows,
		ReviewThreshold: cfg.ReviewThreshold,
	})
	return proc, closeFn, nil
}

// ParseOptionsFromConfig applies configured defaults to a document run.
func ParseOptionsFromConfig(cfg config.Config, docType internal.DocumentType) internal.ParseOptions {
	opts := internal.DefaultParseOptions()
	opts.UseAIMapping = cfg.AIMappingEnabled && cfg.GeminiAPIKey != ""
	opts.AIMappingConfidenceThreshold = cfg.AIThreshold
	if docType != "" {
		opts.DocumentType = docType
	}
	return opts
}
