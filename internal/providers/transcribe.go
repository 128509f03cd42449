package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openai/openai-go"
)

// Transcribe returns the segmented transcript for an audio file. A
// cached artifact under processing/<job>_transcript.json is returned
// unchanged; on a miss the provider is called once and the raw
// structured response is persisted before returning.
func (c *Client) Transcribe(ctx context.Context, audioPath, jobID string) (Transcript, error) {
	cachePath := c.transcriptPath(jobID)
	if data, err := os.ReadFile(cachePath); err == nil {
		var cached Transcript
		if err := json.Unmarshal(data, &cached); err != nil {
			return Transcript{}, fmt.Errorf("corrupt transcript cache %s: %w", filepath.Base(cachePath), err)
		}
		return cached, nil
	}

	client, err := c.api()
	if err != nil {
		return Transcript{}, err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModelWhisper1,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: transcription: %v", ErrProvider, err)
	}

	raw := resp.RawJSON()
	var transcript Transcript
	if err := json.Unmarshal([]byte(raw), &transcript); err != nil {
		return Transcript{}, fmt.Errorf("%w: malformed transcription payload: %v", ErrProvider, err)
	}
	if len(transcript.Segments) == 0 && transcript.Text == "" {
		return Transcript{}, fmt.Errorf("%w: transcription returned no segments", ErrProvider)
	}

	// Persist only after a full successful parse; a failed call must
	// stay retryable.
	if err := os.WriteFile(cachePath, []byte(raw), 0644); err != nil {
		c.logger.Warn("transcript cache write failed", "path", cachePath, "error", err)
	}

	return transcript, nil
}

func (c *Client) transcriptPath(jobID string) string {
	return filepath.Join(c.processingDir, jobID+"_transcript.json")
}
