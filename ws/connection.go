package ws

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"speechbridge/asr"
	"speechbridge/auth"
	"speechbridge/history"
	"speechbridge/realtime"
	"speechbridge/session"
)

type connState int

const (
	stateIdle connState = iota
	stateActiveBatch
	stateActiveRealtime
)

// connection is the per-connection protocol state machine. Inbound frames
// are processed strictly in arrival order on the read loop goroutine; the
// write mutex only guards against the idle-eviction notification racing a
// loop-driven write.
type connection struct {
	h        *Handler
	conn     *websocket.Conn
	identity auth.Identity

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	// generation is bumped on cancel/end/eviction; results of gateway
	// calls that finish under a stale generation are never emitted.
	generation atomic.Int64

	state    connState
	sess     *session.Session
	rt       *realtime.State
	audioBuf bytes.Buffer
}

func newConnection(h *Handler, conn *websocket.Conn, identity auth.Identity) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		h:        h,
		conn:     conn,
		identity: identity,
		ctx:      ctx,
		cancel:   cancel,
		state:    stateIdle,
	}
}

func (c *connection) readLoop() {
	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.h.logger.Warnw("websocket read error", "error", err, "identity", c.identity.UserID)
			}
			return
		}

		if c.sess != nil {
			c.sess.Touch(time.Now())
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.handleRawAudio(payload)
		case websocket.TextMessage:
			c.handleTextFrame(payload)
		}
	}
}

// handleTextFrame dispatches JSON frames as commands and treats anything
// else, including unparseable brace-led frames, as raw audio.
func (c *connection) handleTextFrame(payload []byte) {
	if len(payload) == 0 || payload[0] != '{' {
		c.handleRawAudio(payload)
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.handleRawAudio(payload)
		return
	}

	c.dispatch(msg)
}

func (c *connection) dispatch(msg ClientMessage) {
	switch msg.Type {
	case CmdPing:
		c.send(newEvent(EvtPong, nil))

	case CmdStartSession:
		var data StartSessionData
		if !c.decode(msg.Data, &data) {
			return
		}
		c.handleStartSession(data)

	case CmdStartRealtime:
		var data StartRealtimeData
		if !c.decode(msg.Data, &data) {
			return
		}
		c.handleStartRealtime(data)

	case CmdAudioChunk:
		var data AudioChunkData
		if !c.decode(msg.Data, &data) {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(data.Audio)
		if err != nil {
			c.sendError(CodeInvalidConfig, "audio_chunk payload must be base64")
			return
		}
		c.handleRawAudio(audio)

	case CmdProcessSegment:
		var data ProcessSegmentData
		if !c.decode(msg.Data, &data) {
			return
		}
		c.handleProcessSegment(data)

	case CmdEndSession:
		c.handleEndSession()

	case CmdCancelSession:
		c.handleCancelSession()

	default:
		c.sendError(CodeInvalidConfig, "unknown command type: "+msg.Type)
	}
}

func (c *connection) decode(raw json.RawMessage, into any) bool {
	if len(raw) == 0 {
		c.sendError(CodeInvalidConfig, "missing command data")
		return false
	}
	if err := json.Unmarshal(raw, into); err != nil {
		c.sendError(CodeInvalidConfig, "malformed command data: "+err.Error())
		return false
	}
	return true
}

func (c *connection) handleStartSession(data StartSessionData) {
	cfg, ok := c.buildConfig(data.SourceLang, data.TargetLang, data.Encoding, data.SampleRate, data.EnableVoiceOutput)
	if !ok {
		return
	}

	sess, ok := c.createSession(cfg)
	if !ok {
		return
	}

	c.state = stateActiveBatch
	c.send(newEvent(EvtSessionStarted, SessionStartedData{
		SessionID:  sess.ID,
		SourceLang: cfg.SourceLanguage,
		TargetLang: cfg.TargetLanguage,
	}))
}

func (c *connection) handleStartRealtime(data StartRealtimeData) {
	cfg, ok := c.buildConfig(data.SourceLang, data.TargetLang, "", 0, data.EnableVoiceOutput)
	if !ok {
		return
	}

	sess, ok := c.createSession(cfg)
	if !ok {
		return
	}

	c.rt = realtime.NewState(cfg.SourceLanguage, cfg.TargetLanguage)
	c.state = stateActiveRealtime
	c.send(newEvent(EvtRealtimeReady, RealtimeReadyData{
		SessionID:  sess.ID,
		SourceLang: cfg.SourceLanguage,
		TargetLang: cfg.TargetLanguage,
	}))
}

// buildConfig validates and normalizes session settings. Language
// validation applies to every identity, guests included.
func (c *connection) buildConfig(sourceLang, targetLang, encoding string, sampleRate int, voice bool) (session.Config, bool) {
	if targetLang == "" || !c.h.supported[targetLang] {
		c.sendError(CodeUnsupportedLanguage, "unsupported target language: "+targetLang)
		return session.Config{}, false
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}
	if sourceLang != "auto" && !c.h.supported[sourceLang] {
		c.sendError(CodeUnsupportedLanguage, "unsupported source language: "+sourceLang)
		return session.Config{}, false
	}

	enc := asr.Encoding(encoding)
	if encoding == "" {
		enc = asr.EncodingLinear16
	} else if !asr.ValidEncoding(enc) {
		c.sendError(CodeInvalidConfig, "unsupported audio encoding: "+encoding)
		return session.Config{}, false
	}

	if sampleRate == 0 {
		sampleRate = 16000
	}
	if sampleRate < 8000 || sampleRate > 48000 {
		c.sendError(CodeInvalidConfig, "sample rate must be between 8000 and 48000")
		return session.Config{}, false
	}

	return session.Config{
		SourceLanguage:    sourceLang,
		TargetLanguage:    targetLang,
		EnableVoiceOutput: voice,
		AudioEncoding:     enc,
		SampleRate:        sampleRate,
	}, true
}

func (c *connection) createSession(cfg session.Config) (*session.Session, bool) {
	if c.state != stateIdle {
		c.sendError(CodeSessionExists, "a session is already active on this connection")
		closeWithCode(c.conn, CloseSessionExists, "session already active")
		return nil, false
	}

	// Guest and dev identities skip the usage check but not validation.
	if !c.identity.Guest {
		if err := c.h.deps.Usage.Allow(c.ctx, c.identity.UserID, c.identity.Tier); err != nil {
			c.sendError(CodeUsageLimit, "usage limit reached for subscription tier")
			return nil, false
		}
	}

	sess, err := c.h.registry.Create(c.identity.UserID, c.identity.Tier, cfg)
	if err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			c.sendError(CodeSessionExists, "an active session already exists for this identity")
			closeWithCode(c.conn, CloseSessionExists, "duplicate session")
			return nil, false
		}
		c.sendError(CodeSessionError, "failed to create session")
		return nil, false
	}

	c.sess = sess
	sess.SetIdleCallback(func() {
		c.generation.Add(1)
		c.send(newEvent(EvtSessionEnded, SessionEndedData{
			SessionID: sess.ID,
			Reason:    "idle_timeout",
		}))
		_ = c.conn.Close()
	})

	return sess, true
}

func (c *connection) handleRawAudio(payload []byte) {
	if c.state == stateIdle {
		c.sendError(CodeNoSession, "no active session for audio")
		return
	}
	c.audioBuf.Write(payload)
}

func (c *connection) handleProcessSegment(data ProcessSegmentData) {
	if c.state != stateActiveRealtime {
		c.sendError(CodeNoSession, "no realtime session active")
		return
	}

	start := time.Now()

	audio, err := base64.StdEncoding.DecodeString(data.Audio)
	if err != nil {
		c.sendError(CodeInvalidConfig, "segment audio must be base64")
		return
	}

	// Only decodable segments count against the session cap.
	if err := c.sess.RecordSegment(); err != nil {
		c.sendError(CodeChunkLimit, "segment limit reached for this session")
		return
	}

	segmentID := data.SegmentID
	if segmentID == 0 {
		segmentID = c.rt.NextSegmentID()
	}

	sourceLang := data.SourceLang
	if sourceLang == "" {
		sourceLang = c.rt.SourceLang
	}
	targetLang := data.TargetLang
	if targetLang == "" {
		targetLang = c.rt.TargetLang
	}
	encoding := asr.Encoding(data.Encoding)
	if data.Encoding == "" {
		encoding = c.sess.Config.AudioEncoding
	}

	gen := c.generation.Load()

	sttStart := time.Now()
	transcript, err := c.h.deps.Recognizer.Recognize(c.ctx, asr.SegmentRequest{
		Audio:                      audio,
		Encoding:                   encoding,
		SampleRateHertz:            c.sess.Config.SampleRate,
		LanguageCode:               sourceLang,
		EnableAutomaticPunctuation: true,
		ContextPrompt:              c.rt.ContextPrompt(),
	})
	sttMs := time.Since(sttStart).Milliseconds()
	if err != nil {
		// The failed fragment is treated as never received; accumulated
		// state stays valid for the next segment.
		c.h.logger.Errorw("transcription failed", "error", err, "segmentID", segmentID, "identity", c.identity.UserID)
		if gen != c.generation.Load() {
			return
		}
		c.send(newEvent(EvtSegmentResult, SegmentResultData{
			SegmentID:        segmentID,
			Error:            "transcription failed",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			STTTimeMs:        sttMs,
		}))
		return
	}

	merge := c.rt.Merge(transcript.Text, segmentID)
	if merge.IsEmpty {
		if gen != c.generation.Load() {
			return
		}
		c.send(newEvent(EvtSegmentResult, SegmentResultData{
			SegmentID:        segmentID,
			IsEmpty:          true,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			STTTimeMs:        sttMs,
		}))
		return
	}

	// Translate the full accumulated sentence so partial results carry
	// complete context, not just the newest fragment.
	trStart := time.Now()
	translated, err := c.h.deps.Translator.Translate(c.ctx, merge.Sentence, sourceLang, targetLang)
	trMs := time.Since(trStart).Milliseconds()
	if err != nil {
		// The transcription succeeded, so the merge stands; dropping it
		// would corrupt correction detection for the next segment.
		c.h.logger.Errorw("translation failed", "error", err, "segmentID", segmentID, "identity", c.identity.UserID)
		if gen != c.generation.Load() {
			return
		}
		c.send(newEvent(EvtSegmentResult, SegmentResultData{
			SegmentID:         segmentID,
			Transcript:        merge.Sentence,
			DetectedLanguage:  transcript.DetectedLanguage,
			IsCorrection:      merge.IsCorrection,
			Error:             "translation failed",
			ProcessingTimeMs:  time.Since(start).Milliseconds(),
			STTTimeMs:         sttMs,
			TranslationTimeMs: trMs,
		}))
		return
	}

	if merge.IsComplete {
		c.rt.Finalize(translated.TranslatedText, time.Now())
	}

	if gen != c.generation.Load() {
		return
	}

	c.send(newEvent(EvtSegmentResult, SegmentResultData{
		SegmentID:         segmentID,
		Transcript:        merge.Sentence,
		Translation:       translated.TranslatedText,
		DetectedLanguage:  transcript.DetectedLanguage,
		Confidence:        transcript.Confidence,
		IsFinal:           merge.IsComplete,
		IsCorrection:      merge.IsCorrection,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
		STTTimeMs:         sttMs,
		TranslationTimeMs: trMs,
	}))

	if merge.IsComplete && c.sess.Config.EnableVoiceOutput {
		c.emitVoice(translated.TranslatedText, targetLang, gen)
	}
}

func (c *connection) emitVoice(text, lang string, gen int64) {
	synth, err := c.h.deps.Synthesizer.Synthesize(c.ctx, text, lang, c.sess.Config.AudioEncoding)
	if err != nil {
		c.h.logger.Errorw("speech synthesis failed", "error", err, "identity", c.identity.UserID)
		c.sendError(CodeSessionError, "speech synthesis failed")
		return
	}
	if gen != c.generation.Load() {
		return
	}
	c.send(newEvent(EvtAudioResult, AudioResultData{
		Audio:      base64.StdEncoding.EncodeToString(synth.AudioContent),
		Encoding:   string(synth.Encoding),
		DurationMs: synth.Duration.Milliseconds(),
	}))
}

func (c *connection) handleEndSession() {
	if c.state == stateIdle {
		c.sendError(CodeNoSession, "no active session to end")
		return
	}

	sess := c.sess
	cfg := sess.Config
	now := time.Now()
	gen := c.generation.Load()

	var sentences []realtime.CompletedSentence

	// Drain buffered audio accumulated via audio_chunk frames.
	if c.audioBuf.Len() > 0 {
		if drained, ok := c.drainBufferedAudio(cfg, gen); ok {
			sentences = append(sentences, drained)
		}
	}

	if c.rt != nil {
		// An open sentence without a terminator still gets translated and
		// recorded on explicit end.
		if open := c.rt.CurrentSentence(); open != "" {
			translated, err := c.h.deps.Translator.Translate(c.ctx, open, cfg.SourceLanguage, cfg.TargetLanguage)
			if err != nil {
				c.h.logger.Errorw("failed to translate open sentence at session end", "error", err, "identity", c.identity.UserID)
				c.sendError(CodeSessionError, "failed to finalize open sentence")
			} else {
				c.rt.Finalize(translated.TranslatedText, now)
			}
		}
		sentences = append(sentences, c.rt.Completed()...)
	}

	if !c.identity.Guest && len(sentences) > 0 {
		err := c.h.deps.History.SaveExchange(c.ctx, history.Exchange{
			SessionID: sess.ID,
			Identity:  c.identity.UserID,
			Sentences: sentences,
			StartedAt: sess.CreatedAt,
			EndedAt:   now,
		})
		if err != nil {
			c.h.logger.Errorw("failed to persist exchange", "error", err, "sessionID", sess.ID)
		}
	}

	c.send(newEvent(EvtSessionEnded, SessionEndedData{
		SessionID:          sess.ID,
		SentencesCompleted: len(sentences),
		SegmentsReceived:   sess.SegmentsReceived(),
		DurationMs:         now.Sub(sess.CreatedAt).Milliseconds(),
	}))

	c.teardownSession()
}

// drainBufferedAudio runs the buffered batch audio through transcription
// and translation once.
func (c *connection) drainBufferedAudio(cfg session.Config, gen int64) (realtime.CompletedSentence, bool) {
	transcript, err := c.h.deps.Recognizer.Recognize(c.ctx, asr.SegmentRequest{
		Audio:                      c.audioBuf.Bytes(),
		Encoding:                   cfg.AudioEncoding,
		SampleRateHertz:            cfg.SampleRate,
		LanguageCode:               cfg.SourceLanguage,
		EnableAutomaticPunctuation: true,
	})
	if err != nil {
		c.h.logger.Errorw("failed to transcribe buffered audio", "error", err, "identity", c.identity.UserID)
		c.sendError(CodeSessionError, "failed to transcribe buffered audio")
		return realtime.CompletedSentence{}, false
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return realtime.CompletedSentence{}, false
	}

	translated, err := c.h.deps.Translator.Translate(c.ctx, transcript.Text, cfg.SourceLanguage, cfg.TargetLanguage)
	if err != nil {
		c.h.logger.Errorw("failed to translate buffered audio", "error", err, "identity", c.identity.UserID)
		c.sendError(CodeSessionError, "failed to translate buffered audio")
		return realtime.CompletedSentence{}, false
	}

	if gen != c.generation.Load() {
		return realtime.CompletedSentence{}, false
	}

	c.send(newEvent(EvtTranslationResult, TranslationResultData{
		Transcript:       transcript.Text,
		Translation:      translated.TranslatedText,
		DetectedLanguage: transcript.DetectedLanguage,
		Confidence:       transcript.Confidence,
	}))

	if cfg.EnableVoiceOutput {
		c.emitVoice(translated.TranslatedText, cfg.TargetLanguage, gen)
	}

	return realtime.CompletedSentence{
		SourceText:     transcript.Text,
		TranslatedText: translated.TranslatedText,
		CompletedAt:    time.Now(),
	}, true
}

func (c *connection) handleCancelSession() {
	if c.state == stateIdle {
		c.sendError(CodeNoSession, "no active session to cancel")
		return
	}

	sessID := c.sess.ID
	c.teardownSession()

	c.send(newEvent(EvtSessionEnded, SessionEndedData{
		SessionID: sessID,
		Canceled:  true,
	}))
}

// teardownSession discards per-session state and releases the registry entry.
func (c *connection) teardownSession() {
	c.generation.Add(1)
	c.h.registry.Remove(c.identity.UserID)
	c.sess = nil
	c.rt = nil
	c.audioBuf.Reset()
	c.state = stateIdle
}

func (c *connection) cleanup() {
	c.cancel()
	if c.sess != nil {
		c.h.registry.Remove(c.identity.UserID)
	}
	_ = c.conn.Close()
	c.h.logger.Infow("connection closed", "identity", c.identity.UserID)
}

func (c *connection) send(evt ServerEvent) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(evt); err != nil {
		c.h.logger.Warnw("failed to write event", "error", err, "type", evt.Type)
	}
}

func (c *connection) sendError(code, message string) {
	c.send(newEvent(EvtError, ErrorData{Code: code, Message: message}))
}
