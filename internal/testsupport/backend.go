package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"slidecast/internal/backend"
)

// Request is one call recorded by FakeBackend.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// FakeBackend is an in-memory stand-in for the pipeline API. Job status
// endpoints replay scripted status sequences, repeating the last entry.
type FakeBackend struct {
	t      testing.TB
	server *httptest.Server

	mu         sync.Mutex
	requests   []Request
	statuses   map[string][]backend.JobStatus
	polls      map[string]int
	nextJob    map[string]string
	startError map[string]int
	system     backend.SystemInfo
	parse      []backend.ParseStatus
	parsePolls int
	script     backend.ScriptData
	translated backend.ScriptData
	voices     []backend.Voice
	fileID     string
	deleteCode int
	holds      map[string]chan struct{}
}

// NewFakeBackend starts a fake API server; its URL includes the /api prefix.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		t:          t,
		statuses:   make(map[string][]backend.JobStatus),
		polls:      make(map[string]int),
		nextJob:    make(map[string]string),
		startError: make(map[string]int),
		holds:      make(map[string]chan struct{}),
		fileID:     "f1",
		deleteCode: http.StatusOK,
		voices: []backend.Voice{
			{ShortName: "zh-TW-HsiaoChenNeural", FriendlyName: "HsiaoChen", Gender: "Female", Locale: "zh-TW"},
			{ShortName: "en-US-AriaNeural", FriendlyName: "Aria", Gender: "Female", Locale: "en-US"},
		},
	}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(func() {
		fb.mu.Lock()
		for _, ch := range fb.holds {
			select {
			case <-ch:
			default:
				close(ch)
			}
		}
		fb.mu.Unlock()
		fb.server.Close()
	})
	return fb
}

// URL returns the API base URL.
func (f *FakeBackend) URL() string { return f.server.URL + "/api" }

// SetJobID sets the id returned by the next start call on path (for example
// "/tts/generate-batch").
func (f *FakeBackend) SetJobID(path, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJob[path] = id
}

// FailStart makes start calls on path return code.
func (f *FakeBackend) FailStart(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startError[path] = code
}

// ScriptStatuses sets the status sequence returned for jobID.
func (f *FakeBackend) ScriptStatuses(jobID string, statuses ...backend.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[jobID] = statuses
}

// Hold blocks status responses for jobID until the returned func is called.
func (f *FakeBackend) Hold(jobID string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[jobID] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetSystemInfo sets the system-info response.
func (f *FakeBackend) SetSystemInfo(info backend.SystemInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = info
}

// SetParse sets the parse-status sequence and the file id upload returns.
func (f *FakeBackend) SetParse(fileID string, statuses ...backend.ParseStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileID = fileID
	f.parse = statuses
}

// SetScript sets the generated script response.
func (f *FakeBackend) SetScript(data backend.ScriptData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = data
}

// SetTranslation sets the translated script response.
func (f *FakeBackend) SetTranslation(data backend.ScriptData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translated = data
}

// SetDeleteStatus sets the status code returned by file deletion.
func (f *FakeBackend) SetDeleteStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCode = code
}

// Requests returns a copy of the recorded calls.
func (f *FakeBackend) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many recorded calls match method and path.
func (f *FakeBackend) Count(method, path string) int {
	n := 0
	for _, req := range f.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent call on method and path.
func (f *FakeBackend) Last(method, path string) (Request, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	req := Request{Method: r.Method, Path: path}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		req.Body = body
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && path == "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case r.Method == http.MethodPost && path == "/upload":
		f.mu.Lock()
		id := f.fileID
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, backend.UploadResult{Success: true, FileID: id})
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/parse/"):
		f.mu.Lock()
		var status backend.ParseStatus
		if len(f.parse) > 0 {
			idx := min(f.parsePolls, len(f.parse)-1)
			status = f.parse[idx]
		}
		f.parsePolls++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, status)
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/generate/"):
		f.mu.Lock()
		data := f.script
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, data)
	case r.Method == http.MethodPost && path == "/avatar/upload-photo":
		f.servePhoto(w, r)
	case r.Method == http.MethodPost && path == "/translate":
		f.mu.Lock()
		data := f.translated
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, data)
	case r.Method == http.MethodGet && path == "/tts/voices":
		writeJSON(w, http.StatusOK, f.voicesFor(r.URL.Query().Get("language")))
	case r.Method == http.MethodPost && path == "/tts/generate":
		writeJSON(w, http.StatusOK, backend.SpeechResult{Filename: "preview.mp3", Path: "/data/output/preview.mp3", URLPath: "/output/preview.mp3"})
	case r.Method == http.MethodPost && (path == "/tts/generate-batch" || path == "/ppt/assemble-final" || path == "/avatar/generate-batch"):
		f.mu.Lock()
		code := f.startError[path]
		id := f.nextJob[path]
		f.mu.Unlock()
		if code != 0 {
			writeJSON(w, code, map[string]string{"detail": "start rejected"})
			return
		}
		if id == "" {
			id = strings.Trim(strings.ReplaceAll(path, "/", "-"), "-") + "-job"
		}
		writeJSON(w, http.StatusOK, backend.JobAccepted{JobID: id, Status: backend.StatusPending})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/status"):
		f.serveStatus(w, r, path)
	case r.Method == http.MethodGet && path == "/avatar/system-info":
		f.mu.Lock()
		info := f.system
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, info)
	case r.Method == http.MethodPost && path == "/avatar/force-unlock":
		f.mu.Lock()
		f.system.IsGenerating = false
		f.system.BusyMessage = ""
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/files/"):
		f.mu.Lock()
		code := f.deleteCode
		f.mu.Unlock()
		writeJSON(w, code, map[string]bool{"ok": code < 300})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
	}
}

func (f *FakeBackend) servePhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing file"})
		return
	}
	_ = file.Close()
	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".jpg") && !strings.HasSuffix(name, ".jpeg") && !strings.HasSuffix(name, ".png") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Only JPG and PNG images are supported"})
		return
	}
	writeJSON(w, http.StatusOK, backend.PhotoUpload{
		PhotoID:    header.Filename,
		PhotoURL:   "/uploads/" + header.Filename,
		Validation: map[string]any{"valid": true},
	})
}

func (f *FakeBackend) voicesFor(language string) []backend.Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []backend.Voice{}
	for _, v := range f.voices {
		if language == "" || strings.HasPrefix(v.Locale, language) {
			out = append(out, v)
		}
	}
	return out
}

func (f *FakeBackend) serveStatus(w http.ResponseWriter, r *http.Request, path string) {
	trimmed := strings.TrimSuffix(path, "/status")
	jobID := trimmed[strings.LastIndex(trimmed, "/")+1:]

	f.mu.Lock()
	hold := f.holds[jobID]
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	seq := f.statuses[jobID]
	idx := f.polls[jobID]
	f.polls[jobID]++
	f.mu.Unlock()
	if len(seq) == 0 {
		writeJSON(w, http.StatusOK, backend.JobStatus{JobID: jobID, Status: backend.StatusProcessing})
		return
	}
	status := seq[min(idx, len(seq)-1)]
	status.JobID = jobID
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
