package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/pranhealth/drai/internal/assistant"
	appconfig "github.com/pranhealth/drai/internal/config"
	"github.com/pranhealth/drai/pkg/logging"
)

// BuildLLMClient wires Bedrock as the primary model with Gemini as fallback.
// Either provider may be absent; with neither configured the client is nil
// and the assistant runs on its rule cascade alone.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (assistant.LLMClient, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var primary assistant.LLMClient
	if cfg.BedrockModelID != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		primary = assistant.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		logger.Info("bedrock llm configured", "model_id", cfg.BedrockModelID)
	}

	var fallback assistant.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini llm unavailable", "error", err)
		} else {
			fallback = gemini
			logger.Info("gemini llm configured", "model_id", cfg.GeminiModelID)
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return assistant.NewFallbackLLMClient(primary, fallback, logger), nil
	case primary != nil:
		return primary, nil
	case fallback != nil:
		return fallback, nil
	default:
		logger.Warn("no llm configured; responses use rule templates only")
		return nil, nil
	}
}
