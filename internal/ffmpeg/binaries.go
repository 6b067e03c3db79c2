package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	releaseVersion = "6.1"
	releaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	EnvFFmpegPath  = "SRUTI_FFMPEG_PATH"
	EnvFFprobePath = "SRUTI_FFPROBE_PATH"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

var (
	ensureOnce sync.Once
	ensureErr  error
	ensurePath BinaryPaths
)

// Ensure finds ffmpeg and ffprobe once per process: environment overrides,
// then $PATH, then a cached static build that is downloaded on first use.
func Ensure() (BinaryPaths, error) {
	ensureOnce.Do(func() {
		ensurePath, ensureErr = locate(os.Getenv(EnvFFmpegPath), os.Getenv(EnvFFprobePath))
	})
	return ensurePath, ensureErr
}

// Resolve is Ensure with an explicit ffmpeg path taking priority. ffprobe is
// looked up next to it first.
func Resolve(ffmpegOverride string) (BinaryPaths, error) {
	if ffmpegOverride == "" {
		return Ensure()
	}
	if !fileExists(ffmpegOverride) {
		return BinaryPaths{}, fmt.Errorf("ffmpeg not found at %s", ffmpegOverride)
	}

	paths := BinaryPaths{FFmpeg: ffmpegOverride}
	sibling := filepath.Join(filepath.Dir(ffmpegOverride), "ffprobe"+executableSuffix())
	if fileExists(sibling) {
		paths.FFprobe = sibling
		return paths, nil
	}
	found, err := Ensure()
	if err == nil {
		paths.FFprobe = found.FFprobe
	}
	return paths, nil
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	if paths.FFprobe == "" {
		return "", errors.New("ffprobe not found")
	}
	return paths.FFprobe, nil
}

func locate(ffmpegPath, ffprobePath string) (BinaryPaths, error) {
	if ffmpegPath == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		}
	}
	if ffmpegPath != "" && ffprobePath != "" {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	installDir, err := cacheDir()
	if err != nil {
		return BinaryPaths{}, err
	}
	cached := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(installDir, "ffprobe"+executableSuffix()),
	}

	if !fileExists(cached.FFmpeg) || !fileExists(cached.FFprobe) {
		if err := download(installDir); err != nil {
			return BinaryPaths{}, err
		}
		if !fileExists(cached.FFmpeg) || !fileExists(cached.FFprobe) {
			return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
		}
		if runtime.GOOS != "windows" {
			for _, p := range []string{cached.FFmpeg, cached.FFprobe} {
				if err := os.Chmod(p, 0o755); err != nil {
					return BinaryPaths{}, fmt.Errorf("chmod %s: %w", filepath.Base(p), err)
				}
			}
		}
	}

	// explicit paths win over the cached copies
	if ffmpegPath != "" {
		cached.FFmpeg = ffmpegPath
	}
	if ffprobePath != "" {
		cached.FFprobe = ffprobePath
	}
	return cached, nil
}

func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "sruti", "ffmpeg", releaseVersion, runtime.GOOS, runtime.GOARCH)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	return dir, nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	var suffix string
	switch {
	case goos == "linux" && goarch == "amd64":
		suffix = "linux-64"
	case goos == "linux" && goarch == "arm64":
		suffix = "linux-arm-64"
	case goos == "darwin" && goarch == "amd64":
		suffix = "macos-64"
	case goos == "windows" && goarch == "amd64":
		suffix = "win-64"
	default:
		return "", fmt.Errorf("ffmpeg not found and no prebuilt download for %s/%s: install ffmpeg or set %s", goos, goarch, EnvFFmpegPath)
	}
	return "ffmpeg-" + releaseVersion + "-" + suffix + ".zip", nil
}

func download(installDir string) error {
	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v%s/%s", releaseBaseURL, releaseVersion, assetName)
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp("", "sruti-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	found := map[string]bool{}
	for _, file := range zipReader.File {
		name := strings.TrimSuffix(strings.ToLower(filepath.Base(file.Name)), ".exe")
		if name != "ffmpeg" && name != "ffprobe" {
			continue
		}
		dest := filepath.Join(installDir, name+executableSuffix())
		if err := extractZipFile(file, dest); err != nil {
			return err
		}
		found[name] = true
	}

	if !found["ffmpeg"] || !found["ffprobe"] {
		return errors.New("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
