// Package realtime implements the per-session sentence accumulation state
// machine: merging transcribed fragments across segment boundaries,
// detecting engine-emitted corrections, and deciding sentence completion.
package realtime

import (
	"strings"
	"time"
)

// ContextWindowSize bounds the rolling window of recent fragments used as
// a transcription hint.
const ContextWindowSize = 5

// correctionOverlapRatio is the share of the previous fragment's words
// that must match position-for-position for a fragment to count as a
// correction of its predecessor.
const correctionOverlapRatio = 0.7

// sentenceTerminators are the characters that close a sentence when they
// end a fragment. Covers Latin, CJK, Arabic and Devanagari punctuation.
const sentenceTerminators = ".!?。！？؟।…"

// CompletedSentence is a finalized sentence with its translation.
// Entries are append-only for the lifetime of a session.
type CompletedSentence struct {
	// SegmentID is the id of the segment that opened the sentence.
	SegmentID int64 `json:"segmentId"`
	// SourceText is the full accumulated source sentence.
	SourceText string `json:"sourceText"`
	// TranslatedText is the translation recorded at finalization.
	TranslatedText string `json:"translatedText"`
	// CompletedAt is when the sentence was finalized.
	CompletedAt time.Time `json:"completedAt"`
}

// MergeResult describes how a fragment combined with accumulated state.
type MergeResult struct {
	// SegmentID is the id assigned to the merged fragment.
	SegmentID int64
	// Sentence is the accumulated sentence text after the merge.
	Sentence string
	// SentenceID is the segment id under which the open sentence reports.
	SentenceID int64
	// IsCorrection marks the fragment as a revision of its predecessor.
	IsCorrection bool
	// IsComplete marks the fragment as closing the sentence.
	IsComplete bool
	// IsEmpty marks a whitespace-only fragment; no state was mutated.
	IsEmpty bool
}

// State is the accumulation state for one realtime session. It is owned
// by a single connection task and must not be shared across goroutines.
type State struct {
	// SourceLang and TargetLang are session defaults; segments may
	// override them per call.
	SourceLang string
	TargetLang string

	segmentCounter     int64
	currentSentence    string
	currentSentenceID  int64
	completed          []CompletedSentence
	lastFragment       string
	contextWindow      []string
	awaitingCorrection bool
}

// NewState creates accumulation state for a language pair.
func NewState(sourceLang, targetLang string) *State {
	return &State{SourceLang: sourceLang, TargetLang: targetLang}
}

// NextSegmentID assigns an id to a segment the client sent without one.
func (s *State) NextSegmentID() int64 {
	s.segmentCounter++
	return s.segmentCounter
}

// Merge combines a transcribed fragment with the accumulated sentence.
// Empty fragments short-circuit without touching state. A fragment that
// rewrites its predecessor (same word prefix, strictly longer) replaces
// the prior fragment's text instead of appending.
func (s *State) Merge(fragment string, segmentID int64) MergeResult {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return MergeResult{
			SegmentID:  segmentID,
			Sentence:   s.currentSentence,
			SentenceID: s.currentSentenceID,
			IsEmpty:    true,
		}
	}

	correction := isCorrectionOf(s.lastFragment, trimmed)

	// Corrections revise content already in the window; only genuinely
	// new fragments feed the transcription hint.
	if !correction {
		s.contextWindow = append(s.contextWindow, trimmed)
		if len(s.contextWindow) > ContextWindowSize {
			s.contextWindow = s.contextWindow[1:]
		}
	}

	if correction {
		if s.currentSentence != "" && strings.Contains(s.currentSentence, s.lastFragment) {
			s.currentSentence = strings.Replace(s.currentSentence, s.lastFragment, trimmed, 1)
		} else {
			s.currentSentence = trimmed
		}
		s.awaitingCorrection = true
	} else if s.currentSentence == "" {
		s.currentSentence = trimmed
	} else {
		s.currentSentence += " " + trimmed
	}

	s.lastFragment = trimmed
	if s.currentSentenceID == 0 {
		s.currentSentenceID = segmentID
	}

	return MergeResult{
		SegmentID:    segmentID,
		Sentence:     s.currentSentence,
		SentenceID:   s.currentSentenceID,
		IsCorrection: correction,
		IsComplete:   endsSentence(trimmed),
	}
}

// Finalize closes the open sentence with its translation, appends it to
// the completed list and resets the accumulation state. Callers invoke it
// only after a complete merge whose translation succeeded; a failed
// translation leaves the sentence open for a later terminal fragment.
func (s *State) Finalize(translated string, at time.Time) CompletedSentence {
	entry := CompletedSentence{
		SegmentID:      s.currentSentenceID,
		SourceText:     s.currentSentence,
		TranslatedText: translated,
		CompletedAt:    at,
	}
	s.completed = append(s.completed, entry)
	s.currentSentence = ""
	s.currentSentenceID = 0
	s.awaitingCorrection = false
	return entry
}

// CurrentSentence returns the open, not-yet-finalized sentence text.
func (s *State) CurrentSentence() string { return s.currentSentence }

// CurrentSentenceID returns the segment id of the open sentence, 0 when
// no sentence is open.
func (s *State) CurrentSentenceID() int64 { return s.currentSentenceID }

// LastFragment returns the most recently merged raw fragment.
func (s *State) LastFragment() string { return s.lastFragment }

// AwaitingCorrection reports whether the last merge absorbed a correction.
func (s *State) AwaitingCorrection() bool { return s.awaitingCorrection }

// Completed returns a copy of the finalized sentences in order.
func (s *State) Completed() []CompletedSentence {
	out := make([]CompletedSentence, len(s.completed))
	copy(out, s.completed)
	return out
}

// ContextWindow returns a copy of the rolling fragment window, oldest first.
func (s *State) ContextWindow() []string {
	out := make([]string, len(s.contextWindow))
	copy(out, s.contextWindow)
	return out
}

// ContextPrompt joins the window into a single transcription hint.
func (s *State) ContextPrompt() string {
	return strings.Join(s.contextWindow, " ")
}

// isCorrectionOf reports whether next is a revised re-emission of prev:
// at least as many words, strictly longer text, and at least
// correctionOverlapRatio of prev's words matching position-for-position
// at the start of next. Word comparison ignores trailing punctuation so
// a re-emission that only adds a terminator ("Hola" -> "Hola.") still
// registers as a correction.
func isCorrectionOf(prev, next string) bool {
	if prev == "" {
		return false
	}

	prevWords := strings.Fields(strings.ToLower(prev))
	nextWords := strings.Fields(strings.ToLower(next))
	if len(prevWords) == 0 || len(nextWords) < len(prevWords) {
		return false
	}
	if len(next) <= len(prev) {
		return false
	}

	matches := 0
	for i, word := range prevWords {
		if trimWordPunct(nextWords[i]) == trimWordPunct(word) {
			matches++
		}
	}
	return float64(matches) >= correctionOverlapRatio*float64(len(prevWords))
}

func trimWordPunct(word string) string {
	return strings.TrimRight(word, ".,!?;:。！？؟।…")
}

// endsSentence reports whether the fragment's last non-whitespace rune is
// a sentence terminator.
func endsSentence(fragment string) bool {
	trimmed := strings.TrimRightFunc(fragment, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return strings.ContainsRune(sentenceTerminators, runes[len(runes)-1])
}
