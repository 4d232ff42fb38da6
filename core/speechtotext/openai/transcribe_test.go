package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumenvoice/lumen-core/core/speechtotext"
)

func TestTranscribeSubmitsRecordingAndParsesText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected a multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected default model, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language forwarded, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected a file part: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "utterance.wav" {
				t.Errorf("expected the caller's filename, got %q", header.Filename)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	text, err := client.Transcribe(context.Background(), "utterance.wav",
		strings.NewReader("fake-wav-bytes"), speechtotext.WithLanguage("en"))
	if err != nil {
		t.Fatalf("expected transcription to succeed, got %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected transcript text, got %q", text)
	}
}

func TestTranscribeSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"unsupported file format","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	_, err = client.Transcribe(context.Background(), "utterance.bin", strings.NewReader("junk"))
	if err == nil {
		t.Fatalf("expected an error for a rejected request")
	}
	if !strings.Contains(err.Error(), "unsupported file format") {
		t.Fatalf("expected the remote message surfaced, got %v", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected an error without an api key")
	}

	t.Setenv("OPENAI_API_KEY", "from-env")
	if _, err := NewClient(); err != nil {
		t.Fatalf("expected api key from environment accepted, got %v", err)
	}
}
