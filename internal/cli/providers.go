package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

var apiKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// resolveAPIKey prefers the flag value, then the provider's env var.
func resolveAPIKey(provider, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	envVar, ok := apiKeyEnv[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf(
		"API key is required: use --api-key flag or set %s environment variable",
		envVar,
	)
}

var geminiModels = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

var openAIChatModels = []string{
	"o1", "o3-mini", "o1-pro", "o3",
	"gpt-5", "gpt-5-nano", "gpt-5-mini", "gpt-5-pro",
	"gpt-5.1", "gpt-5.2", "gpt-5.2-pro",
}

var openAIAudioModels = []string{
	"whisper-1",
	"gpt-4o-transcribe",
	"gpt-4o-mini-transcribe",
}

func isValidGeminiModel(model string) bool {
	return slices.Contains(geminiModels, model)
}

func isValidOpenAIModel(model string) bool {
	return slices.Contains(openAIChatModels, model)
}

func isValidOpenAIAudioModel(model string) bool {
	return slices.Contains(openAIAudioModels, model)
}

// checkModel rejects unknown models unless override is set. Anthropic
// model names are passed through as-is.
func checkModel(provider, model string, audio, override bool) error {
	if model == "" || override {
		return nil
	}
	switch provider {
	case "gemini":
		if !isValidGeminiModel(model) {
			return fmt.Errorf(
				"unsupported Gemini model %q: valid models are %s (use --model-override to bypass)",
				model, strings.Join(geminiModels, ", "),
			)
		}
	case "openai":
		valid, list := isValidOpenAIModel(model), openAIChatModels
		if audio {
			valid, list = isValidOpenAIAudioModel(model), openAIAudioModels
		}
		if !valid {
			return fmt.Errorf(
				"unsupported OpenAI model %q: valid models are %s (use --model-override to bypass)",
				model, strings.Join(list, ", "),
			)
		}
	}
	return nil
}

// The OpenAI audio API can only transcribe as spoken or translate to English.
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	}
	return false
}
