package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// plain transcript, one cue per line
type TXTWriter struct{}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatTXT:
		return &TXTWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder
	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTime(entry.StartTime),
			formatSRTTime(entry.EndTime),
			entry.Text)
	}
	return writeFile(path, sb.String())
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
			formatVTTTime(entry.StartTime),
			formatVTTTime(entry.EndTime),
			entry.Text)
	}
	return writeFile(path, sb.String())
}

func (w *TXTWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder
	for _, entry := range sub.Entries {
		sb.WriteString(strings.ReplaceAll(entry.Text, "\n", " "))
		sb.WriteString("\n")
	}
	return writeFile(path, sb.String())
}

func formatSRTTime(d time.Duration) string {
	return TimecodeFromMillis(d.Milliseconds()).String()
}

func formatVTTTime(d time.Duration) string {
	return strings.Replace(formatSRTTime(d), ",", ".", 1)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// GetFormatFromExtension maps .srt, .vtt and .txt to their format.
func GetFormatFromExtension(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT, true
	case ".vtt":
		return FormatVTT, true
	case ".txt":
		return FormatTXT, true
	}
	return "", false
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatTXT:
		return ".txt"
	default:
		return ".srt"
	}
}
