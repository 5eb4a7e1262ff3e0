package google_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-qa/internal/application"
	"voice-qa/internal/infra/google"
)

func TestTTSClient_Synthesize(t *testing.T) {
	var got map[string]map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text:synthesize" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	}))
	defer server.Close()

	client := google.NewTTSClientWithURL("test-key", server.URL)

	audio, err := client.Synthesize(context.Background(), application.SynthesisRequest{
		Text: "Hello Sam",
		Voice: application.VoiceConfig{
			LanguageCode: "en-US",
			VoiceName:    "en-US-Wavenet-A",
			Encoding:     "MP3",
			Pitch:        4.5,
		},
	})
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}

	if string(audio) != "mp3-bytes" {
		t.Errorf("audio: got %q, want mp3-bytes", audio)
	}

	if got["input"]["text"] != "Hello Sam" {
		t.Errorf("input text: got %v", got["input"]["text"])
	}
	if got["voice"]["name"] != "en-US-Wavenet-A" || got["voice"]["languageCode"] != "en-US" {
		t.Errorf("voice: got %v", got["voice"])
	}
	if got["audioConfig"]["audioEncoding"] != "MP3" || got["audioConfig"]["pitch"] != 4.5 {
		t.Errorf("audioConfig: got %v", got["audioConfig"])
	}
}

func TestTTSClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client := google.NewTTSClientWithURL("bad", server.URL)

	_, err := client.Synthesize(context.Background(), application.SynthesisRequest{Text: "hi"})
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestTTSClient_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := google.NewTTSClientWithURL("key", server.URL)

	if _, err := client.Synthesize(context.Background(), application.SynthesisRequest{Text: "hi"}); err == nil {
		t.Error("expected error for empty audio")
	}
}
