package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/sruti/internal/ffmpeg"
	"github.com/mgpai22/sruti/internal/process"
)

// slice of a longer recording
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

// PlanChunks splits total into consecutive windows of at most size.
func PlanChunks(total, size time.Duration) ([]ChunkInfo, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", size)
	}

	var chunks []ChunkInfo
	for start := time.Duration(0); start < total; start += size {
		chunks = append(chunks, ChunkInfo{
			Index:     len(chunks),
			StartTime: start,
			EndTime:   min(start+size, total),
		})
	}
	return chunks, nil
}

// ChunkAudio cuts audioPath into pieces of chunkDuration under outputDir,
// running up to concurrency ffmpeg processes at once (default 4). Chunks
// come back in order.
func ChunkAudio(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
	concurrency int,
) ([]ChunkInfo, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	totalDuration, err := GetDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	chunks, err := PlanChunks(totalDuration, chunkDuration)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(audioPath)
	baseName := strings.TrimSuffix(filepath.Base(audioPath), ext)
	for i := range chunks {
		chunks[i].Path = filepath.Join(
			outputDir,
			fmt.Sprintf("%s_chunk_%03d%s", baseName, i, ext),
		)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(c ChunkInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			args := ffmpeg.Input(audioPath).
				Output(c.Path, ffmpeg.KwArgs{
					"ss": c.StartTime.Seconds(),
					"t":  (c.EndTime - c.StartTime).Seconds(),
					"c":  "copy", // Copy codec for speed
				}).
				OverWriteOutput().
				GetArgs()

			err := process.Run(ctx, process.Command{Path: ffmpegPath, Args: args}, nil)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
				}
				mu.Unlock()
				cancel()
			}
		}(chunk)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return chunks, nil
}

// removes all chunk files
func CleanupChunks(chunks []ChunkInfo) error {
	var lastErr error
	for _, chunk := range chunks {
		if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}
