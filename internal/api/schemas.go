package api

import (
	"time"

	"github.com/clipforge/clipforge/internal/queue"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type TTSRequest struct {
	Script   string `json:"script"`
	Voice    string `json:"voice,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type TTSResponse struct {
	AudioFile string  `json:"audio_file"`
	Duration  float64 `json:"duration"`
	AudioURL  string  `json:"audio_url"`
}

type RenderRequest struct {
	HookClipID    string `json:"hook_clip_id"`
	HookCaption   string `json:"hook_caption"`
	BodyScript    string `json:"body_script"`
	BodyAudioFile string `json:"body_audio_file,omitempty"`
	CTATagline    string `json:"cta_tagline,omitempty"`
	OutputName    string `json:"output_name"`
}

type JobResponse struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	HookClipID      string  `json:"hook_clip_id"`
	HookCaption     string  `json:"hook_caption"`
	BodyScript      string  `json:"body_script"`
	BodyAudioFile   string  `json:"body_audio_file,omitempty"`
	CTATagline      string  `json:"cta_tagline"`
	OutputName      string  `json:"output_name"`
	SourceFile      string  `json:"source_file"`
	StartSeconds    float64 `json:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	Result          string  `json:"result,omitempty"`
	Error           string  `json:"error,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type DeleteResponse struct {
	OK bool `json:"ok"`
}

type PublishedVideo struct {
	Filename  string  `json:"filename"`
	SizeMB    float64 `json:"size_mb"`
	CreatedAt string  `json:"created_at"`
	URL       string  `json:"url"`
}

type PublishedResponse struct {
	Videos      []PublishedVideo `json:"videos"`
	TodayCount  int              `json:"today_count"`
	DailyTarget int              `json:"daily_target"`
}

type ProcessRequest struct {
	Video        string   `json:"video"`
	ClipTypes    []string `json:"clip_types,omitempty"`
	Count        int      `json:"count,omitempty"`
	Audience     string   `json:"audience,omitempty"`
	AddNarration bool     `json:"add_narration,omitempty"`
}

type ProcessResponse struct {
	JobID string `json:"job_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j queue.Job) JobResponse {
	return JobResponse{
		JobID:           j.ID,
		Status:          string(j.Status),
		HookClipID:      j.HookClipID,
		HookCaption:     j.HookCaption,
		BodyScript:      j.BodyScript,
		BodyAudioFile:   j.BodyAudioFile,
		CTATagline:      j.CTATagline,
		OutputName:      j.OutputName,
		SourceFile:      j.SourceFile,
		StartSeconds:    j.StartSeconds,
		DurationSeconds: j.DurationSeconds,
		Result:          j.Result,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       j.UpdatedAt.Format(time.RFC3339),
	}
}
