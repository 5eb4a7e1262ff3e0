package dashscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voice-qa/internal/application"
)

const (
	defaultURL       = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	defaultModel     = "paraformer-realtime-v2"
	chunkSize        = 3200
	handshakeTimeout = 10 * time.Second
)

// Recognizer streams PCM audio to the DashScope real-time ASR service over a
// duplex websocket task.
type Recognizer struct {
	apiKey string
	model  string
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewRecognizer(apiKey, model string, logger *slog.Logger) *Recognizer {
	return NewRecognizerWithURL(apiKey, model, defaultURL, logger)
}

func NewRecognizerWithURL(apiKey, model, url string, logger *slog.Logger) *Recognizer {
	if model == "" {
		model = defaultModel
	}
	return &Recognizer{
		apiKey: apiKey,
		model:  model,
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger,
	}
}

type header struct {
	TaskID       string `json:"task_id,omitempty"`
	Action       string `json:"action,omitempty"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type parameters struct {
	Format        string   `json:"format"`
	SampleRate    int      `json:"sample_rate"`
	LanguageHints []string `json:"language_hints,omitempty"`
}

type runPayload struct {
	TaskGroup  string         `json:"task_group"`
	Task       string         `json:"task"`
	Function   string         `json:"function"`
	Model      string         `json:"model"`
	Parameters parameters     `json:"parameters"`
	Input      map[string]any `json:"input"`
}

type finishPayload struct {
	Input map[string]any `json:"input"`
}

type command struct {
	Header  header `json:"header"`
	Payload any    `json:"payload"`
}

type sentence struct {
	Text        string `json:"text"`
	SentenceEnd bool   `json:"sentence_end"`
	Heartbeat   bool   `json:"heartbeat"`
}

type serverEvent struct {
	Header  header `json:"header"`
	Payload struct {
		Output struct {
			Sentence *sentence `json:"sentence"`
		} `json:"output"`
	} `json:"payload"`
}

func (r *Recognizer) Recognize(ctx context.Context, audio io.Reader, cfg application.RecognitionConfig) (<-chan application.RecognitionEvent, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+r.apiKey)

	conn, _, err := r.dialer.DialContext(ctx, r.url, headers)
	if err != nil {
		return nil, fmt.Errorf("dialing recognition service: %w", err)
	}

	taskID := strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := r.startTask(conn, taskID, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	r.logger.Debug("recognition task started", "task", taskID, "model", r.model)

	events := make(chan application.RecognitionEvent, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go r.send(conn, taskID, audio)
	go r.receive(ctx, conn, events, done)

	return events, nil
}

func (r *Recognizer) startTask(conn *websocket.Conn, taskID string, cfg application.RecognitionConfig) error {
	run := command{
		Header: header{TaskID: taskID, Action: "run-task", Streaming: "duplex"},
		Payload: runPayload{
			TaskGroup: "audio",
			Task:      "asr",
			Function:  "recognition",
			Model:     r.model,
			Parameters: parameters{
				Format:        audioFormat(cfg.Encoding),
				SampleRate:    cfg.SampleRate,
				LanguageHints: languageHints(cfg.LanguageCode),
			},
			Input: map[string]any{},
		},
	}
	if err := conn.WriteJSON(run); err != nil {
		return fmt.Errorf("sending run-task: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("waiting for task-started: %w", err)
		}
		switch ev.Header.Event {
		case "task-started":
			return nil
		case "task-failed":
			return taskError(ev.Header)
		}
	}
}

// send streams audio until the reader ends, then asks the service to finish
// the task. It is the only writer after the handshake.
func (r *Recognizer) send(conn *websocket.Conn, taskID string, audio io.Reader) {
	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Debug("audio stream ended", "task", taskID, "error", err)
			}
			break
		}
	}

	finish := command{
		Header:  header{TaskID: taskID, Action: "finish-task", Streaming: "duplex"},
		Payload: finishPayload{Input: map[string]any{}},
	}
	if err := conn.WriteJSON(finish); err != nil {
		r.logger.Debug("sending finish-task", "task", taskID, "error", err)
	}
}

func (r *Recognizer) receive(ctx context.Context, conn *websocket.Conn, events chan<- application.RecognitionEvent, done chan struct{}) {
	defer close(events)
	defer close(done)
	defer conn.Close()

	emit := func(ev application.RecognitionEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				emit(application.RecognitionEvent{Err: fmt.Errorf("reading recognition stream: %w", err)})
			}
			return
		}

		switch ev.Header.Event {
		case "result-generated":
			s := ev.Payload.Output.Sentence
			if s == nil || s.Heartbeat {
				continue
			}
			result := application.RecognitionResult{
				Alternatives: []application.Alternative{{Transcript: s.Text}},
				IsFinal:      s.SentenceEnd,
			}
			if !emit(application.RecognitionEvent{Results: []application.RecognitionResult{result}}) {
				return
			}
		case "task-finished":
			return
		case "task-failed":
			emit(application.RecognitionEvent{Err: taskError(ev.Header)})
			return
		}
	}
}

func taskError(h header) error {
	return fmt.Errorf("recognition task failed: %s: %s", h.ErrorCode, h.ErrorMessage)
}

func audioFormat(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "", "LINEAR16", "PCM":
		return "pcm"
	default:
		return strings.ToLower(encoding)
	}
}

// languageHints maps a locale such as en-US to the service's language hint.
func languageHints(code string) []string {
	if code == "" {
		return nil
	}
	lang, _, _ := strings.Cut(code, "-")
	return []string{strings.ToLower(lang)}
}
