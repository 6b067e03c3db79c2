package translate

import (
	"strings"
	"testing"
)

func TestExtractTranslationResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"bare array", `[{"index": 0, "text": "こんにちは"}, {"index": 1, "text": "さようなら"}]`, []string{"こんにちは", "さようなら"}, false},
		{"prose before", "Here you go:\n[{\"index\": 0, \"text\": \"Bonjour\"}]", []string{"Bonjour"}, false},
		{"prose after", "[{\"index\": 0, \"text\": \"Hola\"}]\nLet me know if you need more.", []string{"Hola"}, false},
		{"results wrapper", `{"results": [{"index": 0, "text": "Übersetzt"}]}`, []string{"Übersetzt"}, false},
		{"translations wrapper", `{"translations": [{"index": 0, "text": "Переведено"}]}`, []string{"Переведено"}, false},
		{"items wrapper", `{"items": [{"index": 0, "text": "traduit"}]}`, []string{"traduit"}, false},
		{"other key", `{"output": [{"index": 0, "text": "tradotto"}]}`, []string{"tradotto"}, false},
		{"markup kept", `[{"index": 0, "text": "<i>Leise</i>\nbitte"}]`, []string{"<i>Leise</i>\nbitte"}, false},
		{"stray backslash escape", `[{"index": 0, "text": "first\Nsecond"}]`, []string{`first\Nsecond`}, false},
		{"empty array", `[]`, nil, true},
		{"only empty text", `[{"index": 0, "text": ""}]`, nil, true},
		{"no json", "Sorry, I cannot translate this.", nil, true},
		{"truncated", `[{"index": 0, "text": "cut`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := extractTranslationResults(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("extractTranslationResults() = %v, want error", results)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractTranslationResults() error = %v", err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.want))
			}
			for i, w := range tt.want {
				if results[i].Text != w {
					t.Errorf("result %d = %q, want %q", i, results[i].Text, w)
				}
			}
		})
	}
}

func TestFixInvalidEscapes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`a\nb`, `a\nb`},
		{`quote \"x\"`, `quote \"x\"`},
		{`\u00e9`, `\u00e9`},
		{`line\Nbreak`, `line\\Nbreak`},
		{`C:\path`, `C:\\path`},
		{`trailing\`, `trailing\`},
	}

	for _, tt := range tests {
		if got := fixInvalidEscapes(tt.in); got != tt.want {
			t.Errorf("fixInvalidEscapes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanJSONResponse(t *testing.T) {
	for _, in := range []string{
		`[{"index": 0}]`,
		"```json\n[{\"index\": 0}]\n```",
		"```\n[{\"index\": 0}]\n```",
		"  \n```json\n[{\"index\": 0}]\n```\n  ",
	} {
		if got := cleanJSONResponse(in); got != `[{"index": 0}]` {
			t.Errorf("cleanJSONResponse(%q) = %q", in, got)
		}
	}
}

func TestSortResults(t *testing.T) {
	results := []TranslationResult{{Index: 2, Text: "c"}, {Index: 0, Text: "a"}, {Index: 1, Text: "b"}}
	sortResults(results)
	var got []string
	for _, r := range results {
		got = append(got, r.Text)
	}
	if strings.Join(got, "") != "abc" {
		t.Errorf("sortResults() order = %v", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString(short) = %q", got)
	}
	if got := truncateString("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("truncateString(long) = %q", got)
	}
}
