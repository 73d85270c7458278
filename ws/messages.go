package ws

import (
	"encoding/json"
	"time"
)

// Client command types.
const (
	CmdStartSession   = "start_session"
	CmdStartRealtime  = "start_realtime"
	CmdAudioChunk     = "audio_chunk"
	CmdProcessSegment = "process_segment"
	CmdEndSession     = "end_session"
	CmdCancelSession  = "cancel_session"
	CmdPing           = "ping"
)

// Server event types.
const (
	EvtSessionStarted    = "session_started"
	EvtRealtimeReady     = "realtime_ready"
	EvtSessionEnded      = "session_ended"
	EvtSegmentResult     = "segment_result"
	EvtTranslationResult = "translation_result"
	EvtAudioResult       = "audio_result"
	EvtError             = "error"
	EvtPong              = "pong"
)

// Error codes reported in error events.
const (
	CodeUnauthorized        = "unauthorized"
	CodeSessionExists       = "session_exists"
	CodeNoSession           = "no_session"
	CodeUnsupportedLanguage = "unsupported_language"
	CodeInvalidConfig       = "invalid_config"
	CodeChunkLimit          = "chunk_limit"
	CodeUsageLimit          = "usage_limit"
	CodeSessionError        = "session_error"
)

// Close codes for errors that terminate the transport.
const (
	CloseUnauthorized  = 4401
	CloseSessionExists = 4409
)

// ClientMessage is the tagged-union envelope for every client command.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type StartSessionData struct {
	SourceLang        string `json:"sourceLang"`
	TargetLang        string `json:"targetLang"`
	EnableVoiceOutput bool   `json:"enableVoiceOutput"`
	Encoding          string `json:"encoding"`
	SampleRate        int    `json:"sampleRate"`
}

type StartRealtimeData struct {
	SourceLang        string `json:"sourceLang"`
	TargetLang        string `json:"targetLang"`
	EnableVoiceOutput bool   `json:"enableVoiceOutput"`
}

// AudioChunkData carries base64 audio in a JSON envelope. Clients may
// instead send raw binary frames.
type AudioChunkData struct {
	Audio string `json:"audio"`
}

// ProcessSegmentData submits one audio segment for realtime processing.
type ProcessSegmentData struct {
	Audio      string `json:"audio"`
	SegmentID  int64  `json:"segmentId,omitempty"`
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
}

// ServerEvent is the envelope for every server-to-client event.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	// Timestamp is the emission time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

func newEvent(eventType string, data any) ServerEvent {
	return ServerEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

type SessionStartedData struct {
	SessionID  string `json:"sessionId"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type RealtimeReadyData struct {
	SessionID  string `json:"sessionId"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// SegmentResultData reports the outcome of one processed segment.
type SegmentResultData struct {
	SegmentID         int64   `json:"segmentId"`
	Transcript        string  `json:"transcript"`
	Translation       string  `json:"translation"`
	DetectedLanguage  string  `json:"detectedLanguage,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	IsFinal           bool    `json:"isFinal"`
	IsCorrection      bool    `json:"isCorrection"`
	IsEmpty           bool    `json:"isEmpty,omitempty"`
	ProcessingTimeMs  int64   `json:"processingTimeMs"`
	STTTimeMs         int64   `json:"sttTimeMs,omitempty"`
	TranslationTimeMs int64   `json:"translationTimeMs,omitempty"`
	Error             string  `json:"error,omitempty"`
}

type TranslationResultData struct {
	Transcript       string  `json:"transcript"`
	Translation      string  `json:"translation"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

type AudioResultData struct {
	Audio      string `json:"audio"` // base64
	Encoding   string `json:"encoding"`
	DurationMs int64  `json:"durationMs"`
}

type SessionEndedData struct {
	SessionID          string `json:"sessionId"`
	SentencesCompleted int    `json:"sentencesCompleted"`
	SegmentsReceived   int    `json:"segmentsReceived"`
	DurationMs         int64  `json:"durationMs"`
	Canceled           bool   `json:"canceled,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
