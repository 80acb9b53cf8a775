package speech

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI synthesizes speech with the OpenAI audio API.
type OpenAI struct {
	client *openai.Client
	voice  openai.SpeechVoice
	model  openai.SpeechModel
	hasKey bool
}

// NewOpenAI returns an OpenAI synthesizer. voice and model default to
// alloy and tts-1.
func NewOpenAI(apiKey, voiceName, model string, opts ...Option) *OpenAI {
	o := applyOptions(opts)
	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	cfg.HTTPClient = o.client
	if voiceName == "" {
		voiceName = string(openai.VoiceAlloy)
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		voice:  openai.SpeechVoice(voiceName),
		model:  openai.SpeechModel(model),
		hasKey: apiKey != "",
	}
}

func (s *OpenAI) Name() string { return "openai" }

// Synthesize requests MP3 audio for text.
func (s *OpenAI) Synthesize(ctx context.Context, text string) (Audio, error) {
	if !s.hasKey {
		return Audio{}, ErrNoAPIKey
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("speech: openai: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: openai: read audio: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("speech: openai: empty audio")
	}
	return Audio{Data: data, MIMEType: "audio/mpeg"}, nil
}
