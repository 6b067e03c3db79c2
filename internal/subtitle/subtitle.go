package subtitle

import (
	"time"
)

// single cue
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// output formats whisper-cli and the remote engines can produce
type Format string

const (
	FormatTXT Format = "txt"
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// transcribed audio segment
type Segment struct {
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}

// FromSegments numbers non-empty segments as cues.
func FromSegments(segments []Segment) *Subtitle {
	sub := &Subtitle{Entries: make([]Entry, 0, len(segments))}
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		sub.Entries = append(sub.Entries, Entry{
			Index:     len(sub.Entries) + 1,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Text:      seg.Text,
		})
	}
	return sub
}
