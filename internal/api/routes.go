package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge/internal/catalog"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/queue"
)

const defaultCTATagline = "Understand your audience."

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/clips", listClipsHandler(cfg))
		r.Get("/clips/search", searchClipsHandler(cfg))
		r.Get("/clips/{id}", getClipHandler(cfg))
		r.Get("/clips/{id}/video", clipVideoHandler(cfg))

		r.Post("/tts", ttsHandler(cfg))
		r.Get("/audio/{filename}", serveAudioHandler(cfg))

		r.Post("/render", submitRenderHandler(cfg))
		r.Get("/queue", listQueueHandler(cfg))
		r.Delete("/queue/{job_id}", deleteJobHandler(cfg))

		r.Get("/published", listPublishedHandler(cfg))
		r.Get("/published/{filename}", servePublishedHandler(cfg))

		r.Post("/process", processHandler(cfg))
		r.Get("/process/{job_id}", processStatusHandler(cfg))

		r.Get("/events", eventsHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "0.1.0",
			UptimeS: uptime,
		})
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := r.URL.Query().Get("source")
		minScore := 0.0
		if raw := r.URL.Query().Get("min_score"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "min_score must be a number", "BAD_REQUEST")
				return
			}
			minScore = parsed
		}

		clips, err := cfg.Catalog.List(source, minScore)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}
		if clips == nil {
			clips = []catalog.Clip{}
		}
		WriteJSON(w, http.StatusOK, clips)
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		clip, err := cfg.Catalog.Get(id)
		if errors.Is(err, catalog.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func clipVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		path, ok := cfg.Catalog.LocateRendered(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "no rendered video for this clip", "NOT_FOUND")
			return
		}
		if err := cfg.Files.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("clip video serve error", "clip_id", id, "error", err)
		}
	}
}

func searchClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.URL.Query().Get("topic")
		if topic == "" {
			WriteError(w, http.StatusBadRequest, "topic is required", "BAD_REQUEST")
			return
		}
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = parsed
		}

		clips, err := cfg.Catalog.Search(r.Context(), cfg.Search, topic, limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "search failed", "INTERNAL_ERROR")
			return
		}
		if clips == nil {
			clips = []catalog.Clip{}
		}
		WriteJSON(w, http.StatusOK, clips)
	}
}

func ttsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TTSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Script == "" {
			WriteError(w, http.StatusBadRequest, "script is required", "BAD_REQUEST")
			return
		}
		if req.Voice == "" {
			req.Voice = "shimmer"
		}
		if req.Provider == "" {
			req.Provider = "openai"
		}

		result, err := cfg.Speech.Synthesize(r.Context(), req.Script, req.Voice, req.Provider)
		if err != nil {
			writeProviderError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, TTSResponse{
			AudioFile: result.Path,
			Duration:  result.Duration,
			AudioURL:  "/api/audio/" + filepath.Base(result.Path),
		})
	}
}

func serveAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := filepath.Base(chi.URLParam(r, "filename"))
		path := filepath.Join(cfg.TmpDir, filename)
		if _, err := os.Stat(path); err != nil {
			WriteError(w, http.StatusNotFound, "audio file not found", "NOT_FOUND")
			return
		}
		if err := cfg.Files.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("audio serve error", "filename", filename, "error", err)
		}
	}
}

func submitRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.HookClipID == "" || req.BodyScript == "" || req.OutputName == "" {
			WriteError(w, http.StatusBadRequest, "hook_clip_id, body_script, and output_name are required", "BAD_REQUEST")
			return
		}
		if req.CTATagline == "" {
			req.CTATagline = defaultCTATagline
		}

		clip, err := cfg.Catalog.Get(req.HookClipID)
		if errors.Is(err, catalog.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "clip not found: "+req.HookClipID, "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		job, err := cfg.Queue.Submit(queue.Job{
			HookClipID:      req.HookClipID,
			HookCaption:     req.HookCaption,
			BodyScript:      req.BodyScript,
			BodyAudioFile:   req.BodyAudioFile,
			CTATagline:      req.CTATagline,
			OutputName:      req.OutputName,
			SourceFile:      clip.SourceFile,
			StartSeconds:    clip.StartSeconds,
			DurationSeconds: clip.DurationSecs,
		})
		if errors.Is(err, queue.ErrQueueFull) {
			WriteError(w, http.StatusServiceUnavailable, "render queue is full", "QUEUE_FULL")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func listQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Queue.List()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := make([]JobResponse, len(jobs))
		for i, j := range jobs {
			resp[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func deleteJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "job_id")
		err := cfg.Queue.Remove(id)
		if errors.Is(err, queue.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		if errors.Is(err, queue.ErrJobRunning) {
			WriteError(w, http.StatusConflict, "job is running", "CONFLICT")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, DeleteResponse{OK: true})
	}
}

func listPublishedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := PublishedResponse{
			Videos:      []PublishedVideo{},
			DailyTarget: cfg.DailyTarget,
		}

		matches, _ := filepath.Glob(filepath.Join(cfg.PublishedDir, "*.mp4"))
		type entry struct {
			path  string
			info  os.FileInfo
			mtime time.Time
		}
		var files []entry
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			files = append(files, entry{path, info, info.ModTime()})
		}
		sort.Slice(files, func(i, j int) bool {
			return files[i].mtime.After(files[j].mtime)
		})

		today := time.Now().Format("2006-01-02")
		for _, f := range files {
			name := filepath.Base(f.path)
			if f.mtime.Format("2006-01-02") == today {
				resp.TodayCount++
			}
			resp.Videos = append(resp.Videos, PublishedVideo{
				Filename:  name,
				SizeMB:    math.Round(float64(f.info.Size())/1024/1024*10) / 10,
				CreatedAt: f.mtime.UTC().Format(time.RFC3339),
				URL:       "/api/published/" + name,
			})
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func servePublishedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := filepath.Base(chi.URLParam(r, "filename"))
		path := filepath.Join(cfg.PublishedDir, filename)
		if _, err := os.Stat(path); err != nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}
		if err := cfg.Files.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("published serve error", "filename", filename, "error", err)
		}
	}
}

func processHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Video == "" {
			WriteError(w, http.StatusBadRequest, "video is required", "BAD_REQUEST")
			return
		}
		if len(req.ClipTypes) == 0 {
			req.ClipTypes = []string{"meme"}
		}
		if req.Count <= 0 {
			req.Count = 5
		}

		videoPath := req.Video
		if !filepath.IsAbs(videoPath) {
			videoPath = filepath.Join(cfg.UploadsDir, filepath.Base(videoPath))
		}
		if _, err := os.Stat(videoPath); err != nil {
			WriteError(w, http.StatusNotFound, "video not found: "+filepath.Base(videoPath), "NOT_FOUND")
			return
		}

		// The task outlives this request; the request context is
		// canceled as soon as the handler returns.
		jobID, err := cfg.Processor.Start(context.WithoutCancel(r.Context()), pipeline.Request{
			VideoPath:    videoPath,
			ClipTypes:    req.ClipTypes,
			Count:        req.Count,
			Audience:     req.Audience,
			AddNarration: req.AddNarration,
		})
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, ProcessResponse{JobID: jobID})
	}
}

func processStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")
		state, err := cfg.Processor.LoadState(jobID)
		if os.IsNotExist(err) {
			WriteError(w, http.StatusNotFound, "unknown processing job", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, state)
	}
}

func writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, providers.ErrMissingCredential):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "MISSING_CREDENTIAL")
	case errors.Is(err, providers.ErrProvider):
		WriteError(w, http.StatusBadGateway, err.Error(), "PROVIDER_ERROR")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
