package backend

import "strings"

// Job status values reported by the backend. StatusIdle is client-local only.
const (
	StatusIdle       = "idle"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Slide is the parsed summary of one source slide.
type Slide struct {
	SlideNo    int              `json:"slide_no"`
	Title      string           `json:"title"`
	Bullets    []string         `json:"bullets,omitempty"`
	Tables     []map[string]any `json:"tables,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	ImageCount int              `json:"image_count,omitempty"`
}

// UploadResult is returned by the upload endpoint before parsing finishes.
type UploadResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	FileID  string  `json:"file_id"`
	Slides  []Slide `json:"slides"`
}

// ParseStatus reports background slide parsing progress.
type ParseStatus struct {
	FileID   string         `json:"file_id"`
	Status   string         `json:"status"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Slides   []Slide        `json:"slides,omitempty"`
	Summary  map[string]any `json:"summary,omitempty"`
}

// ScriptConfig is the script-generation request body.
type ScriptConfig struct {
	Audience           string `json:"audience,omitempty"`
	Purpose            string `json:"purpose,omitempty"`
	Context            string `json:"context,omitempty"`
	Tone               string `json:"tone,omitempty"`
	DurationSec        int    `json:"duration_sec,omitempty"`
	IncludeTransitions *bool  `json:"include_transitions,omitempty"`
	Language           string `json:"language,omitempty"`

	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	OllamaBaseURL string `json:"ollama_base_url,omitempty"`
	SystemPrompt  string `json:"system_prompt,omitempty"`
}

// SlideScript is the narration generated for one slide.
type SlideScript struct {
	SlideNo  string           `json:"slide_no"`
	Title    string           `json:"title"`
	Script   string           `json:"script"`
	Segments []map[string]any `json:"segments,omitempty"`
}

// ScriptData is the generated narration for the whole deck.
type ScriptData struct {
	FileID       string         `json:"file_id"`
	Opening      string         `json:"opening"`
	SlideScripts []SlideScript  `json:"slide_scripts"`
	FullScript   string         `json:"full_script,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TranslateRequest asks the backend to translate a full script.
type TranslateRequest struct {
	FullScript     string `json:"full_script"`
	TargetLanguage string `json:"target_language"`
	APIKey         string `json:"api_key,omitempty"`
}

// PhotoUpload is returned once a presenter photo passes validation.
type PhotoUpload struct {
	PhotoID    string         `json:"photo_id"`
	PhotoURL   string         `json:"photo_url"`
	Validation map[string]any `json:"validation,omitempty"`
}

// Voice is one text-to-speech voice option.
type Voice struct {
	ShortName    string `json:"short_name"`
	FriendlyName string `json:"friendly_name"`
	Gender       string `json:"gender"`
	Locale       string `json:"locale"`
}

// SpeechRequest synthesizes one narration segment.
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Rate  string `json:"rate"`
	Pitch string `json:"pitch"`
}

// SpeechResult points at the synthesized audio file.
type SpeechResult struct {
	Filename   string   `json:"filename"`
	Path       string   `json:"path"`
	URLPath    string   `json:"url_path"`
	AudioFiles []string `json:"audio_files,omitempty"`
}

// BatchAudioRequest starts text-to-speech for every slide script.
type BatchAudioRequest struct {
	SlideScripts []SlideScript `json:"slide_scripts"`
	Voice        string        `json:"voice"`
	Rate         string        `json:"rate"`
	Pitch        string        `json:"pitch"`
}

// AssembleRequest starts final file assembly.
type AssembleRequest struct {
	FileID       string        `json:"file_id"`
	SlideScripts []SlideScript `json:"slide_scripts"`
	AudioPaths   []string      `json:"audio_paths"`
	VideoPaths   []string      `json:"video_paths"`
	Voice        string        `json:"voice"`
	PhotoID      string        `json:"photo_id,omitempty"`
}

// AvatarBatchRequest starts talking-avatar rendering for every audio file.
type AvatarBatchRequest struct {
	PhotoID         string   `json:"photo_id"`
	AudioPaths      []string `json:"audio_paths"`
	Emotion         int      `json:"emotion"`
	CropScale       float64  `json:"crop_scale"`
	SamplingSteps   int      `json:"sampling_steps"`
	MaxSize         int      `json:"max_size"`
	PreviewDuration float64  `json:"preview_duration,omitempty"`
}

// JobAccepted is the response of every job-start endpoint.
type JobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResult is the kind-specific payload of a completed job.
type JobResult struct {
	AudioFiles []string `json:"audio_files,omitempty"`
	VideoFiles []string `json:"video_files,omitempty"`
	Results    []string `json:"results,omitempty"`
	URLPath    string   `json:"url_path,omitempty"`
	PPTXPath   string   `json:"pptx_path,omitempty"`
}

// Videos returns the rendered video paths, skipping slides that produced none.
func (r *JobResult) Videos() []string {
	if r == nil {
		return nil
	}
	if len(r.VideoFiles) > 0 {
		return r.VideoFiles
	}
	var out []string
	for _, path := range r.Results {
		if strings.TrimSpace(path) != "" {
			out = append(out, path)
		}
	}
	return out
}

// JobStatus is the poll response shared by the generic and avatar job endpoints.
type JobStatus struct {
	JobID        string     `json:"job_id,omitempty"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Message      string     `json:"message"`
	Result       *JobResult `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	VideoURL     string     `json:"video_url,omitempty"`
	CurrentFrame string     `json:"current_frame,omitempty"`
}

// Terminal reports whether the status ends polling.
func (s JobStatus) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// FailureMessage returns the most specific failure text available.
func (s JobStatus) FailureMessage() string {
	if msg := strings.TrimSpace(s.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(s.Message); msg != "" {
		return msg
	}
	return "job failed"
}

// SystemInfo reports the avatar renderer state, including the cluster-wide busy flag.
type SystemInfo struct {
	CUDAAvailable bool   `json:"cuda_available"`
	GPUName       string `json:"gpu_name,omitempty"`
	ModelLoaded   bool   `json:"model_loaded"`
	AvatarEnabled bool   `json:"avatar_enabled"`
	IsGenerating  bool   `json:"is_generating"`
	BusyMessage   string `json:"busy_message,omitempty"`
	Message       string `json:"message,omitempty"`
}
