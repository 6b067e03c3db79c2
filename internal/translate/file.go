package translate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/sruti/internal/logging"
	"github.com/mgpai22/sruti/internal/subtitle"
)

// FileOptions controls TranslateFile.
type FileOptions struct {
	Overlay     bool // keep the original text under the translation
	Concurrency int
}

// OutputPath derives "<base>.<lang>[.overlay].<ext>" for a translated file.
func OutputPath(inputPath, targetLang string, overlay bool) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	lang := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(targetLang), " ", "-"))
	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, lang, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, lang, ext)
}

// TranslateFile translates every cue of an SRT or VTT file and writes the
// result to outputPath in the same format. Timings are left untouched.
// Returns the number of cues translated.
func TranslateFile(
	ctx context.Context,
	translator Translator,
	inputPath, outputPath string,
	opts FileOptions,
	logger *logging.Logger,
) (int, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	subFile, err := subtitle.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	sub := subFile.Subtitle()
	if len(sub.Entries) == 0 {
		return 0, fmt.Errorf("subtitle file contains no entries")
	}

	logger.Infow("Parsed subtitle file",
		"entries", len(sub.Entries),
		"format", subFile.Format(),
	)

	items := make([]TranslationItem, len(sub.Entries))
	originals := make([]string, len(sub.Entries))
	for i, entry := range sub.Entries {
		items[i] = TranslationItem{Index: i, Text: entry.Text}
		originals[i] = entry.Text
	}

	logger.Infow("Translating subtitles",
		"items", len(items),
		"concurrency", opts.Concurrency,
	)

	var results []TranslationResult
	if ct, ok := translator.(ConcurrentTranslator); ok && opts.Concurrency > 1 {
		results, err = ct.TranslateWithConcurrency(ctx, items, opts.Concurrency)
	} else {
		results, err = translator.Translate(ctx, items)
	}
	if err != nil {
		return 0, fmt.Errorf("translation failed: %w", err)
	}

	translated := 0
	for _, result := range results {
		if result.Index < 0 || result.Index >= len(sub.Entries) {
			logger.Warnw("Skipping invalid result index",
				"index", result.Index,
				"max", len(sub.Entries)-1,
			)
			continue
		}

		text := result.Text
		if opts.Overlay {
			text = result.Text + "\n" + originals[result.Index]
		}
		if err := subFile.SetText(result.Index, text); err != nil {
			return translated, fmt.Errorf("failed to set text for entry %d: %w", result.Index, err)
		}
		translated++
	}

	if err := subFile.Write(outputPath); err != nil {
		return translated, fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Infow("Translation complete",
		"output", outputPath,
		"translated", translated,
	)

	return translated, nil
}
