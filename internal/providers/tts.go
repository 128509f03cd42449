package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
)

var openAIVoices = map[string]bool{
	"alloy": true, "echo": true, "fable": true,
	"onyx": true, "nova": true, "shimmer": true,
}

var elevenLabsVoiceIDs = map[string]string{
	"Rachel": "21m00Tcm4TlvDq8ikWAM",
	"Bella":  "EXAVITQu4vr4xnSDxMaL",
	"Adam":   "pNInz6obpgDQGcFmaJgB",
	"Antoni": "ErXwobaYiN019PkySvjV",
}

// speechSynth is one TTS backend. The provider tag picks the
// implementation once at the call boundary.
type speechSynth func(ctx context.Context, script, voice string, out *os.File) error

// Synthesize turns a narration script into an mp3 under the tmp
// directory and measures its duration. Unknown voices fall back to the
// backend default rather than failing the job.
func (c *Client) Synthesize(ctx context.Context, script, voice, provider string) (SpeechResult, error) {
	var synth speechSynth
	switch provider {
	case "elevenlabs":
		synth = c.synthesizeElevenLabs
	default:
		synth = c.synthesizeOpenAI
	}

	if err := os.MkdirAll(c.tmpDir, 0755); err != nil {
		return SpeechResult{}, fmt.Errorf("create tmp dir: %w", err)
	}
	outPath := filepath.Join(c.tmpDir, uuid.NewString()+".mp3")
	out, err := os.Create(outPath)
	if err != nil {
		return SpeechResult{}, fmt.Errorf("create audio file: %w", err)
	}

	if err := synth(ctx, script, voice, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return SpeechResult{}, err
	}
	if err := out.Close(); err != nil {
		return SpeechResult{}, fmt.Errorf("flush audio file: %w", err)
	}

	duration, err := c.prober.Probe(ctx, outPath)
	if err != nil {
		return SpeechResult{}, fmt.Errorf("measure narration duration: %w", err)
	}

	c.logger.Info("narration synthesized",
		"provider", provider, "voice", voice,
		"duration_s", duration, "path", filepath.Base(outPath))

	return SpeechResult{Path: outPath, Duration: duration}, nil
}

func (c *Client) synthesizeOpenAI(ctx context.Context, script, voice string, out *os.File) error {
	client, err := c.api()
	if err != nil {
		return err
	}
	if !openAIVoices[voice] {
		voice = "shimmer"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModelTTS1,
		Input: script,
		Voice: openai.AudioSpeechNewParamsVoice(voice),
	})
	if err != nil {
		return fmt.Errorf("%w: tts: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("%w: tts stream: %v", ErrProvider, err)
	}
	return nil
}

func (c *Client) synthesizeElevenLabs(ctx context.Context, script, voice string, out *os.File) error {
	if c.elevenLabsKey == "" {
		return fmt.Errorf("%w: ELEVENLABS_API_KEY not set", ErrMissingCredential)
	}

	voiceID, ok := elevenLabsVoiceIDs[voice]
	if !ok {
		voiceID = elevenLabsVoiceIDs["Rachel"]
	}

	payload, err := json.Marshal(map[string]any{
		"text":     script,
		"model_id": "eleven_monolingual_v1",
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal tts payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := "https://api.elevenlabs.io/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("xi-api-key", c.elevenLabsKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: elevenlabs: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: elevenlabs status %d: %s", ErrProvider, resp.StatusCode, body)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("%w: elevenlabs stream: %v", ErrProvider, err)
	}
	return nil
}
