package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesizePostsTextForVoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var body synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Text != "Hello listeners" || body.ModelID != "" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xFB, 0x90, 0x64})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL + "/v1/text-to-speech/"})
	audio, err := client.Synthesize(context.Background(), "Hello listeners", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(audio) != 4 || audio[0] != 0xFF {
		t.Fatalf("unexpected audio %v", audio)
	}
}

func TestSynthesizeReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"voice not found"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), "text", "missing")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.StatusCode != http.StatusUnprocessableEntity || synthErr.VoiceID != "missing" {
		t.Fatalf("unexpected error details: %+v", synthErr)
	}

	if _, err := NewClient(Config{BaseURL: server.URL}).Synthesize(context.Background(), "text", "v"); !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError for missing key, got %v", err)
	}
}

func TestSynthesizeRejectsOversizedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(make([]byte, 17))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL}, WithMaxAudioBytes(16))
	_, err := client.Synthesize(context.Background(), "Hello listeners", "voice-1")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}

	exact := NewClient(Config{APIKey: "secret", BaseURL: server.URL}, WithMaxAudioBytes(17))
	audio, err := exact.Synthesize(context.Background(), "Hello listeners", "voice-1")
	if err != nil || len(audio) != 17 {
		t.Fatalf("expected 17 bytes at the limit, got %d bytes, err %v", len(audio), err)
	}
}
