package preprocess

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
	"strings"
	"time"

	"github.com/distill-app/core/internal/config"
)

const maxAudioBytes = 64 << 20

// WhisperTranscriber sends referenced audio to a Whisper-compatible
// /audio/transcriptions endpoint. The reference may be a local file path or
// an http(s) URL.
type WhisperTranscriber struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewWhisperTranscriber(cfg config.TranscriptionConfig) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription API key is required")
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperTranscriber{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		http:     &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Transcribe implements Transcriber.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, sourceRef string) (string, error) {
	audio, filename, err := t.readAudio(ctx, sourceRef)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("transcription parse: %w", err)
	}
	return parsed.Text, nil
}

func (t *WhisperTranscriber) readAudio(ctx context.Context, sourceRef string) ([]byte, string, error) {
	if strings.HasPrefix(sourceRef, "http://") || strings.HasPrefix(sourceRef, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := t.http.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("audio download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("audio download failed with status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
		if err != nil {
			return nil, "", err
		}
		name := filepath.Base(strings.SplitN(sourceRef, "?", 2)[0])
		if name == "" || name == "." || name == "/" {
			name = "audio.mp3"
		}
		return data, name, nil
	}

	data, err := os.ReadFile(sourceRef)
	if err != nil {
		return nil, "", fmt.Errorf("audio read: %w", err)
	}
	return data, filepath.Base(sourceRef), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
