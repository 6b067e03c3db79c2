package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// parsed subtitle file
type File interface {
	Format() Format
	Subtitle() *Subtitle
	SetText(index int, text string) error
	Write(path string) error
}

// Open parses an SRT or VTT file, picking the format from the extension.
func Open(path string) (File, error) {
	format, ok := GetFormatFromExtension(path)
	if !ok || format == FormatTXT {
		return nil, fmt.Errorf("unsupported subtitle format: %s", strings.ToLower(filepath.Ext(path)))
	}
	return parseFile(path, format)
}

// cue file backed by a generic entry list
type cueFile struct {
	format  Format
	entries []Entry
}

func (f *cueFile) Format() Format {
	return f.format
}

func (f *cueFile) Subtitle() *Subtitle {
	return &Subtitle{
		Entries: f.entries,
		Format:  string(f.format),
	}
}

func (f *cueFile) SetText(index int, text string) error {
	if index < 0 || index >= len(f.entries) {
		return fmt.Errorf(
			"index %d out of range (0-%d)",
			index,
			len(f.entries)-1,
		)
	}
	f.entries[index].Text = text
	return nil
}

func (f *cueFile) Write(path string) error {
	writer, err := NewWriter(f.format)
	if err != nil {
		return err
	}
	return writer.Write(f.Subtitle(), path)
}
