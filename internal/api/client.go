package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/leonardotrapani/speechcoach/internal/language"
	"github.com/leonardotrapani/speechcoach/internal/recording"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	// maxAudioBytes bounds a synthesized-speech download.
	maxAudioBytes = 20 << 20
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnsupportedTask     = errors.New("unsupported transcription task")
)

// Client talks to the speech backend's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string, segments ...string) string {
	u := c.baseURL + path
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

func checkLanguage(lang string) error {
	if !language.IsSupported(lang) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return nil
}

type formField struct {
	name, value string
}

// do sends req and turns a non-2xx response into *APIError. The caller closes the body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("api-client: %s %s failed after %v: %v", req.Method, req.URL.Path, time.Since(start), err)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := parseAPIError(resp.StatusCode, body)
		log.Printf("api-client: %s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, apiErr.Detail)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) postMultipart(ctx context.Context, path string, clip *recording.Clip, fields ...formField) (*http.Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if clip != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, clip.Filename()))
		contentType := clip.MIMEType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(clip.Data)); err != nil {
			return nil, fmt.Errorf("copy audio data: %w", err)
		}
	}

	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeSubmit(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var sr SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if sr.JobID == "" {
		return "", ErrMissingJobID
	}
	return sr.JobID, nil
}

// Task selects what /transcribe does with the speech.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	// TaskTranslate produces an English transcript of speech in lang.
	TaskTranslate Task = "translate"
)

func (t Task) valid() bool {
	return t == TaskTranscribe || t == TaskTranslate
}

// Transcribe uploads clip for transcription and returns the job id.
func (c *Client) Transcribe(ctx context.Context, clip recording.Clip, lang string) (string, error) {
	return c.TranscribeTask(ctx, clip, lang, TaskTranscribe)
}

// TranscribeTask is Transcribe with an explicit task. An empty task transcribes.
func (c *Client) TranscribeTask(ctx context.Context, clip recording.Clip, lang string, task Task) (string, error) {
	if clip.Empty() {
		return "", ErrEmptyClip
	}
	if err := checkLanguage(lang); err != nil {
		return "", err
	}
	if task == "" {
		task = TaskTranscribe
	}
	if !task.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}

	resp, err := c.postMultipart(ctx, "/transcribe", &clip, formField{"language", lang}, formField{"task", string(task)})
	if err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	jobID, err := decodeSubmit(resp)
	if err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	log.Printf("api-client: %s job %s submitted (%s, %d bytes, %s)", task, jobID, clip.Filename(), len(clip.Data), lang)
	return jobID, nil
}

func (c *Client) TranscriptionStatus(ctx context.Context, jobID string) (TranscriptionStatus, error) {
	var st TranscriptionStatus
	if err := c.getJSON(ctx, c.url("/status", jobID), &st); err != nil {
		return TranscriptionStatus{}, fmt.Errorf("transcription status: %w", err)
	}
	return st, nil
}

// AnalyzePronunciation uploads clip with the text the speaker was asked to read.
func (c *Client) AnalyzePronunciation(ctx context.Context, clip recording.Clip, reference, lang string) (string, error) {
	if clip.Empty() {
		return "", ErrEmptyClip
	}
	if strings.TrimSpace(reference) == "" {
		return "", ErrEmptyReference
	}
	if err := checkLanguage(lang); err != nil {
		return "", err
	}

	resp, err := c.postMultipart(ctx, "/analyze-pronunciation", &clip,
		formField{"reference_text", reference},
		formField{"language", lang},
	)
	if err != nil {
		return "", fmt.Errorf("submit pronunciation analysis: %w", err)
	}
	jobID, err := decodeSubmit(resp)
	if err != nil {
		return "", fmt.Errorf("submit pronunciation analysis: %w", err)
	}
	log.Printf("api-client: pronunciation job %s submitted (%s, %d bytes, %s)", jobID, clip.Filename(), len(clip.Data), lang)
	return jobID, nil
}

func (c *Client) PronunciationStatus(ctx context.Context, jobID string) (PronunciationStatus, error) {
	var st PronunciationStatus
	if err := c.getJSON(ctx, c.url("/pronunciation-status", jobID), &st); err != nil {
		return PronunciationStatus{}, fmt.Errorf("pronunciation status: %w", err)
	}
	return st, nil
}

// SynthesizeSpeech returns spoken audio for text. The response must be audio/*.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, lang string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrEmptyText
	}
	if err := checkLanguage(lang); err != nil {
		return Audio{}, err
	}

	resp, err := c.postMultipart(ctx, "/synthesize-speech", nil,
		formField{"text", text},
		formField{"language", lang},
	)
	if err != nil {
		return Audio{}, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "audio/") {
		return Audio{}, fmt.Errorf("synthesize speech: unexpected content type %q", contentType)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return Audio{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, errors.New("synthesize speech: empty audio")
	}
	return Audio{Data: data, ContentType: recording.BaseMIMEType(contentType)}, nil
}

// ChatbotQuery asks the grammar chatbot a question.
func (c *Client) ChatbotQuery(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return ChatResponse{}, ErrEmptyQuery
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("marshal chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/chatbot/query"), bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chatbot query: %w", err)
	}
	defer resp.Body.Close()

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	if err := c.getJSON(ctx, c.url("/health"), &h); err != nil {
		return HealthResponse{}, fmt.Errorf("health check: %w", err)
	}
	return h, nil
}

// DeleteJob removes a finished job from the backend.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url("/job", jobID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", jobID, err)
	}
	resp.Body.Close()
	return nil
}
