// downloader.go acquires a local audio artifact from a video URL using
// the yt-dlp CLI tool, the same way the transcript side shells out to it.
//
// yt-dlp's FFmpegExtractAudio post-processor converts whatever container
// the best-audio stream arrives in (webm/m4a/opus) into a 128kbps mp3 —
// quality tuned for speech recognition speed, not listening fidelity.
package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Acquirer produces a local audio file for a video URL.
type Acquirer interface {
	Acquire(ctx context.Context, videoURL, videoID string) (string, error)
	Cleanup(audioPath string)
}

// Downloader implements Acquirer on top of the yt-dlp binary.
type Downloader struct {
	ytDlpPath string
	workDir   string

	// retry knobs, overridable in tests
	maxAttempts int
	retryDelay  time.Duration
}

// NewDownloader creates a downloader that writes artifacts under workDir.
func NewDownloader(ytDlpPath, workDir string) *Downloader {
	return &Downloader{
		ytDlpPath:   ytDlpPath,
		workDir:     workDir,
		maxAttempts: 3,
		retryDelay:  5 * time.Second,
	}
}

// Acquire downloads the audio track for videoURL and returns the path of
// the extracted mp3. Transient failures are retried up to 3 attempts total
// with a fixed delay between them; after exhausting retries the last error
// is returned wrapped.
//
// The caller owns the returned file and must call Cleanup when done —
// including when a later stage fails, or the work directory leaks one
// artifact per failed video.
func (d *Downloader) Acquire(ctx context.Context, videoURL, videoID string) (string, error) {
	outputTemplate := filepath.Join(d.workDir, videoID+".%(ext)s")
	audioPath := filepath.Join(d.workDir, videoID+".mp3")

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		cmd := exec.CommandContext(ctx, d.ytDlpPath,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", "128K",
			"--output", outputTemplate,
			"--no-playlist",
			"--no-warnings",
			"--quiet",
			videoURL,
		)

		output, err := cmd.CombinedOutput()
		if err == nil {
			if _, statErr := os.Stat(audioPath); statErr == nil {
				return audioPath, nil
			}
			err = fmt.Errorf("yt-dlp reported success but %s is missing", audioPath)
		} else {
			err = fmt.Errorf("yt-dlp failed: %w: %s", err, string(output))
		}

		lastErr = err
		if attempt < d.maxAttempts {
			log.Printf("⚠️  Audio download retry %d/%d for %s: %v", attempt, d.maxAttempts, videoID, err)
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("audio download cancelled: %w", ctx.Err())
			}
		}
	}

	return "", fmt.Errorf("audio download failed after %d attempts: %w", d.maxAttempts, lastErr)
}

// intermediateExts are the raw container formats yt-dlp may leave behind
// next to the extracted mp3.
var intermediateExts = []string{".webm", ".m4a", ".opus"}

// Cleanup removes the audio artifact and any sibling intermediate-format
// files. Safe to call with a path that was never created.
func (d *Downloader) Cleanup(audioPath string) {
	if audioPath == "" {
		return
	}
	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Failed to remove %s: %v", audioPath, err)
	}

	base := audioPath[:len(audioPath)-len(filepath.Ext(audioPath))]
	for _, ext := range intermediateExts {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  Failed to remove %s: %v", base+ext, err)
		}
	}
}
