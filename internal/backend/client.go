package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/services"
)

const (
	userAgent            = "slidecast/0.1"
	defaultStartTimeout  = 10 * time.Minute
	defaultStatusTimeout = 30 * time.Second
	maxErrorBody         = 4 << 10
)

// Client talks to the narration pipeline backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	startTimeout  time.Duration
	statusTimeout time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeouts overrides the start and status request bounds.
func WithTimeouts(start, status time.Duration) Option {
	return func(c *Client) {
		if start > 0 {
			c.startTimeout = start
		}
		if status > 0 {
			c.statusTimeout = status
		}
	}
}

// NewClient constructs a backend client rooted at baseURL (including any /api prefix).
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:    &http.Client{},
		startTimeout:  defaultStartTimeout,
		statusTimeout: defaultStatusTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// StatusError is returned for non-2xx responses. Detail carries the backend's
// `detail` field when present.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, c.statusTimeout, "health", http.MethodGet, "/health", nil, nil)
}

// Upload sends a slide deck as multipart form data. Parsing continues in the
// background; poll ParseStatus for the slides.
func (c *Client) Upload(ctx context.Context, path string) (UploadResult, error) {
	var result UploadResult
	if err := c.postFile(ctx, "upload", "/upload", path, &result); err != nil {
		return result, err
	}
	if strings.TrimSpace(result.FileID) == "" {
		return result, errors.New("upload: response missing file_id")
	}
	return result, nil
}

// UploadPhoto sends a presenter photo for the avatar renderer. The backend
// validates the face and returns the photo id used by avatar jobs.
func (c *Client) UploadPhoto(ctx context.Context, path string) (PhotoUpload, error) {
	var result PhotoUpload
	if err := c.postFile(ctx, "upload photo", "/avatar/upload-photo", path, &result); err != nil {
		return result, err
	}
	if strings.TrimSpace(result.PhotoID) == "" {
		return result, errors.New("upload photo: response missing photo_id")
	}
	return result, nil
}

func (c *Client) postFile(ctx context.Context, op, urlPath, path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: open %s: %w", op, path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("%s: copy file: %w", op, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%s: close form: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.startTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+urlPath, &body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.send(req, op, c.startTimeout, out)
}

// ParseStatus polls background slide parsing for fileID.
func (c *Client) ParseStatus(ctx context.Context, fileID string) (ParseStatus, error) {
	var status ParseStatus
	err := c.do(ctx, c.statusTimeout, "parse status", http.MethodGet, "/parse/"+url.PathEscape(fileID)+"/status", nil, &status)
	return status, err
}

// GenerateScript runs script generation synchronously and tags the result with fileID.
func (c *Client) GenerateScript(ctx context.Context, fileID string, cfg ScriptConfig) (ScriptData, error) {
	var data ScriptData
	if err := c.do(ctx, c.startTimeout, "generate script", http.MethodPost, "/generate/"+url.PathEscape(fileID), cfg, &data); err != nil {
		return data, err
	}
	data.FileID = fileID
	return data, nil
}

// TranslateScript translates a full script and tags the parsed result with fileID.
func (c *Client) TranslateScript(ctx context.Context, fileID string, req TranslateRequest) (ScriptData, error) {
	var data ScriptData
	if err := c.do(ctx, c.startTimeout, "translate script", http.MethodPost, "/translate", req, &data); err != nil {
		return data, err
	}
	data.FileID = fileID
	return data, nil
}

// Voices lists the text-to-speech voices, optionally narrowed to a language code.
func (c *Client) Voices(ctx context.Context, language string) ([]Voice, error) {
	path := "/tts/voices"
	if language = strings.TrimSpace(language); language != "" {
		path += "?language=" + url.QueryEscape(language)
	}
	var voices []Voice
	err := c.do(ctx, c.statusTimeout, "list voices", http.MethodGet, path, nil, &voices)
	return voices, err
}

// GenerateSpeech synthesizes a single narration segment synchronously.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	var result SpeechResult
	err := c.do(ctx, c.startTimeout, "generate speech", http.MethodPost, "/tts/generate", req, &result)
	return result, err
}

// StartBatchAudio starts text-to-speech for every slide script.
func (c *Client) StartBatchAudio(ctx context.Context, req BatchAudioRequest) (JobAccepted, error) {
	return c.startJob(ctx, "start batch audio", "/tts/generate-batch", req)
}

// StartAssemble starts final file assembly.
func (c *Client) StartAssemble(ctx context.Context, req AssembleRequest) (JobAccepted, error) {
	if req.AudioPaths == nil {
		req.AudioPaths = []string{}
	}
	if req.VideoPaths == nil {
		req.VideoPaths = []string{}
	}
	return c.startJob(ctx, "start assemble", "/ppt/assemble-final", req)
}

// StartAvatarBatch starts talking-avatar rendering.
func (c *Client) StartAvatarBatch(ctx context.Context, req AvatarBatchRequest) (JobAccepted, error) {
	return c.startJob(ctx, "start avatar batch", "/avatar/generate-batch", req)
}

// JobStatus polls the generic job endpoint used by audio and assemble jobs.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := c.do(ctx, c.statusTimeout, "job status", http.MethodGet, "/ppt/job/"+url.PathEscape(jobID)+"/status", nil, &status)
	return status, err
}

// AvatarJobStatus polls the avatar job endpoint.
func (c *Client) AvatarJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := c.do(ctx, c.statusTimeout, "avatar job status", http.MethodGet, "/avatar/job/"+url.PathEscape(jobID)+"/status", nil, &status)
	return status, err
}

// SystemInfo reports whether the shared avatar renderer is busy.
func (c *Client) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	err := c.do(ctx, c.statusTimeout, "system info", http.MethodGet, "/avatar/system-info", nil, &info)
	return info, err
}

// ForceUnlock clears the system-wide avatar lock. It may abort another client's render.
func (c *Client) ForceUnlock(ctx context.Context) error {
	return c.do(ctx, c.statusTimeout, "force unlock", http.MethodPost, "/avatar/force-unlock", nil, nil)
}

// DeleteFile removes an uploaded deck and its derived assets.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.do(ctx, c.statusTimeout, "delete file", http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, nil)
}

func (c *Client) startJob(ctx context.Context, op, path string, payload any) (JobAccepted, error) {
	var accepted JobAccepted
	if err := c.do(ctx, c.startTimeout, op, http.MethodPost, path, payload, &accepted); err != nil {
		return accepted, err
	}
	if strings.TrimSpace(accepted.JobID) == "" {
		return accepted, fmt.Errorf("%s: response missing job_id", op)
	}
	return accepted, nil
}

func (c *Client) do(ctx context.Context, timeout time.Duration, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, timeout, out)
}

func (c *Client) send(req *http.Request, op string, timeout time.Duration, out any) error {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "", op, fmt.Sprintf("no response within %s", timeout), err)
		}
		return services.Wrap(services.ErrTransport, "", op, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		switch detail := payload.Detail.(type) {
		case string:
			if strings.TrimSpace(detail) != "" {
				return strings.TrimSpace(detail)
			}
		case nil:
		default:
			if encoded, err := json.Marshal(detail); err == nil {
				return string(encoded)
			}
		}
		if strings.TrimSpace(payload.Error) != "" {
			return strings.TrimSpace(payload.Error)
		}
	}
	return strings.TrimSpace(string(data))
}
