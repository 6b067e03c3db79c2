package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// one subtitle cue's text, addressed by its position in the file
type TranslationItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type TranslationResult struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Translator translates cue texts. Results may come back in any order and
// are matched to items by Index.
type Translator interface {
	Translate(
		ctx context.Context,
		items []TranslationItem,
	) ([]TranslationResult, error)
}

// ConcurrentTranslator sends several batches at once.
type ConcurrentTranslator interface {
	Translator
	TranslateWithConcurrency(
		ctx context.Context,
		items []TranslationItem,
		concurrency int,
	) ([]TranslationResult, error)
}

type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// models used when Options.Model is empty
var defaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-5-mini",
	ProviderAnthropic: string(anthropic.ModelClaudeHaiku4_5),
}

type Options struct {
	InputLanguage  string // empty lets the model detect it
	TargetLanguage string
	Model          string
	Prompt         string // appended to the built-in rules
	BatchSize      int    // cues per request, DefaultBatchSize when zero
}

func (o Options) model(p Provider) string {
	if o.Model != "" {
		return o.Model
	}
	return defaultModels[p]
}

// Factory builds the translator for provider. Provider names are matched
// case-insensitively.
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if strings.TrimSpace(opts.TargetLanguage) == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	switch Provider(strings.ToLower(string(provider))) {
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

var promptRules = []string{
	"Translate only the text, keeping the meaning and tone of spoken dialogue.",
	"Leave markup such as <i>, <b> and <font color=...> exactly as it is.",
	"Keep line breaks (\\n) where they are; a cue should not grow extra lines.",
	"Answer with a JSON array only, one object per input object.",
	"Every object has an 'index' and a 'text' field; copy 'index' unchanged.",
	"No commentary and no markdown code fences.",
}

// BuildPrompt renders the request for one batch of cues.
func BuildPrompt(opts Options, items []TranslationItem) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		fmt.Fprintf(&sb, "Translate these %s subtitle cues into %s.\n\n", opts.InputLanguage, opts.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate these subtitle cues into %s.\n\n", opts.TargetLanguage)
	}

	sb.WriteString("Rules:\n")
	for i, rule := range promptRules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}
	sb.WriteString("\n")

	if opts.Prompt != "" {
		fmt.Fprintf(&sb, "Also: %s\n\n", opts.Prompt)
	}

	sb.WriteString("Cues:\n")
	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)
	sb.WriteString("\n\nTranslated JSON array:")

	return sb.String()
}
