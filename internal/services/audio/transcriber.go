// Package audio acquires audio from videos and transcribes it.
//
// Transcription goes through OpenAI's Whisper API: a multipart form upload
// of the audio file, constrained to the configured source language. Max
// file size is 25MB, which the 128kbps mp3 extraction stays well under for
// typical cooking videos.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Transcriber converts an audio artifact into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// whisperResponse is the JSON shape returned by the Whisper API.
type whisperResponse struct {
	Text string `json:"text"`
}

// WhisperTranscriber handles audio transcription via the OpenAI Whisper API.
type WhisperTranscriber struct {
	apiKey     string
	language   string // fixed source language, e.g. "ko"
	httpClient *http.Client
}

// NewWhisperTranscriber creates a transcriber with the given OpenAI API key.
func NewWhisperTranscriber(apiKey, language string) *WhisperTranscriber {
	return &WhisperTranscriber{
		apiKey:   apiKey,
		language: language,
		httpClient: &http.Client{
			// Whisper can take a while for long audio files
			Timeout: 5 * time.Minute,
		},
	}
}

// IsConfigured returns true if the OpenAI API key is set.
func (t *WhisperTranscriber) IsConfigured() bool {
	return t.apiKey != ""
}

// Transcribe sends the audio file to the Whisper API and returns the text.
// No retry here — retry policy, if wanted, belongs to the caller.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !t.IsConfigured() {
		return "", fmt.Errorf("OpenAI API key not configured; set OPENAI_API_KEY environment variable")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	// Build multipart form body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	if err := writer.WriteField("model", "whisper-1"); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}

	if err := writer.WriteField("language", t.language); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}

	// Close the writer to finalize the multipart body
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Whisper API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Whisper API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var whisperResp whisperResponse
	if err := json.Unmarshal(respBody, &whisperResp); err != nil {
		return "", fmt.Errorf("failed to parse Whisper response: %w", err)
	}

	return whisperResp.Text, nil
}
