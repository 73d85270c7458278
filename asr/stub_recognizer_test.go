package asr

import (
	"context"
	"errors"
	"testing"
)

func TestStubRecognizer_ScriptedTranscripts(t *testing.T) {
	stub := NewStubRecognizer(&StubRecognizerConfig{
		DefaultLanguage: "es",
		Transcripts: map[int]string{
			0: "Hola",
			1: "Hola, que tal?",
		},
	})

	req := SegmentRequest{Audio: []byte{1, 2, 3}, LanguageCode: "auto"}

	first, err := stub.Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Text != "Hola" {
		t.Fatalf("expected scripted transcript, got %q", first.Text)
	}
	if first.DetectedLanguage != "es" {
		t.Fatalf("expected default language for auto, got %q", first.DetectedLanguage)
	}

	second, err := stub.Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Text != "Hola, que tal?" {
		t.Fatalf("expected second scripted transcript, got %q", second.Text)
	}
}

func TestStubRecognizer_ErrorInjection(t *testing.T) {
	stub := NewStubRecognizer(&StubRecognizerConfig{
		DefaultLanguage: "en",
		Transcripts:     map[int]string{0: "fine"},
		ErrorOn:         map[int]bool{1: true},
	})

	if _, err := stub.Recognize(context.Background(), SegmentRequest{}); err != nil {
		t.Fatalf("first call should succeed, got %v", err)
	}

	_, err := stub.Recognize(context.Background(), SegmentRequest{})
	if !errors.Is(err, ErrStubRecognizer) {
		t.Fatalf("expected ErrStubRecognizer, got %v", err)
	}
}

func TestStubRecognizer_RecordsRequests(t *testing.T) {
	stub := NewStubRecognizer(nil)

	req := SegmentRequest{ContextPrompt: "previous sentence", LanguageCode: "de"}
	if _, err := stub.Recognize(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requests := stub.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 recorded request, got %d", len(requests))
	}
	if requests[0].ContextPrompt != "previous sentence" {
		t.Fatalf("expected context prompt recorded, got %q", requests[0].ContextPrompt)
	}
	if stub.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", stub.Calls())
	}
}

func TestValidEncoding(t *testing.T) {
	for _, enc := range []Encoding{EncodingLinear16, EncodingFLAC, EncodingOggOpus, EncodingWebmOpus, EncodingMP3, EncodingM4A, EncodingWAV} {
		if !ValidEncoding(enc) {
			t.Fatalf("expected %s to be valid", enc)
		}
	}
	if ValidEncoding("AMR") {
		t.Fatal("expected AMR to be rejected")
	}
}
