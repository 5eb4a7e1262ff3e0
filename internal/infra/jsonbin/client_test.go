package jsonbin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"voice-qa/internal/infra/jsonbin"
)

const doc = `{"name":"Sam","books":[{"isActivated":true,"questions":[{"q":"weather","a":"It is sunny"}]}]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Load(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "plain document", body: doc},
		{name: "record envelope", body: `{"record":` + doc + `,"metadata":{"id":"abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/b/bin123/latest" {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				if r.Header.Get("secret-key") != "s3cret" {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := jsonbin.NewClientWithURL("bin123", "s3cret", server.URL, discardLogger())

			c, err := client.Load(context.Background())
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if c.Name != "Sam" {
				t.Errorf("Name: got %q, want Sam", c.Name)
			}
			if entries := c.ActiveEntries(); len(entries) != 1 || entries[0].Answer != "It is sunny" {
				t.Errorf("entries: got %+v", entries)
			}
		})
	}
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := jsonbin.NewClientWithURL("bin123", "key", server.URL, discardLogger())

	for i := 0; i < 3; i++ {
		if _, err := client.Load(context.Background()); err == nil || errors.Is(err, jsonbin.ErrUnavailable) {
			t.Fatalf("attempt %d: got %v, want HTTP error", i+1, err)
		}
	}

	if _, err := client.Load(context.Background()); !errors.Is(err, jsonbin.ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls: got %d, want 3", got)
	}
}
