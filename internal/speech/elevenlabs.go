package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabs synthesizes speech with the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	http    *http.Client
}

// Option configures a cloud synthesizer.
type Option func(*options)

type options struct {
	baseURL string
	client  *http.Client
}

// WithBaseURL points the synthesizer at a different API host.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient replaces the HTTP client used for synthesis requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	return o
}

// NewElevenLabs returns an ElevenLabs synthesizer for voiceID and modelID.
func NewElevenLabs(apiKey, voiceID, modelID string, opts ...Option) *ElevenLabs {
	o := applyOptions(opts)
	base := o.baseURL
	if base == "" {
		base = elevenLabsBaseURL
	}
	return &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		baseURL: strings.TrimRight(base, "/"),
		http:    o.client,
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize requests MP3 audio for text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (Audio, error) {
	if e.apiKey == "" {
		return Audio{}, ErrNoAPIKey
	}
	body, err := json.Marshal(map[string]string{"text": text, "model_id": e.modelID})
	if err != nil {
		return Audio{}, fmt.Errorf("speech: elevenlabs: encode request: %w", err)
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Audio{}, fmt.Errorf("speech: elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.http.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: elevenlabs: read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Audio{}, fmt.Errorf("speech: elevenlabs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("speech: elevenlabs: empty audio")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return Audio{Data: data, MIMEType: mime}, nil
}
