package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"speechbridge/asr"
)

func TestHTTPSynthesizer_Synthesize(t *testing.T) {
	var gotAuth string
	var gotReq httpSynthesizeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(httpSynthesizeResponse{
			AudioContent:  base64.StdEncoding.EncodeToString([]byte("synthesized-pcm")),
			AudioEncoding: string(asr.EncodingMP3),
			DurationMs:    850,
		})
	}))
	defer server.Close()

	synthesizer := NewHTTPSynthesizer(HTTPSynthesizerConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})

	synth, err := synthesizer.Synthesize(context.Background(), "Hello world.", "en", asr.EncodingMP3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(synth.AudioContent) != "synthesized-pcm" {
		t.Fatalf("unexpected audio content: %q", synth.AudioContent)
	}
	if synth.Encoding != asr.EncodingMP3 {
		t.Fatalf("unexpected encoding: %q", synth.Encoding)
	}
	if synth.Duration != 850*time.Millisecond {
		t.Fatalf("unexpected duration: %v", synth.Duration)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Text != "Hello world." {
		t.Fatalf("unexpected text forwarded: %q", gotReq.Text)
	}
	if gotReq.LanguageCode != "en" {
		t.Fatalf("unexpected language forwarded: %q", gotReq.LanguageCode)
	}
	if gotReq.AudioEncoding != string(asr.EncodingMP3) {
		t.Fatalf("unexpected encoding forwarded: %q", gotReq.AudioEncoding)
	}
}

func TestHTTPSynthesizer_EngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	synthesizer := NewHTTPSynthesizer(HTTPSynthesizerConfig{BaseURL: server.URL})
	_, err := synthesizer.Synthesize(context.Background(), "hello", "en", asr.EncodingLinear16)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}

func TestHTTPSynthesizer_MalformedAudioContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(httpSynthesizeResponse{AudioContent: "not-base64!!!"})
	}))
	defer server.Close()

	synthesizer := NewHTTPSynthesizer(HTTPSynthesizerConfig{BaseURL: server.URL})
	if _, err := synthesizer.Synthesize(context.Background(), "hello", "en", asr.EncodingLinear16); err == nil {
		t.Fatal("expected error for undecodable audio content")
	}
}
