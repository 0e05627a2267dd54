// Package phishcheck defines the transport types returned by the phishing detector.
package phishcheck

import (
	"fmt"
	"strings"
	"time"
)

// Label is a serialized verdict, redundant with Result.IsPhishing
type Label string

// enum of labels
const (
	LabelPhishing   Label = "phishing"
	LabelLegitimate Label = "legitimate"
)

// LabelFor returns label matching the verdict
func LabelFor(isPhishing bool) Label {
	if isPhishing {
		return LabelPhishing
	}
	return LabelLegitimate
}

// Result is a result of a single message analysis. Owned by the caller, not modified after construction.
type Result struct {
	IsPhishing       bool     `json:"is_phishing"`
	Confidence       float64  `json:"confidence"`         // clamped score, 0.0 - 1.0
	Label            Label    `json:"label"`              // "phishing" or "legitimate"
	Indicators       []string `json:"indicators"`         // human-readable reasons, in the order they were found
	ProcessingTimeMS uint64   `json:"processing_time_ms"` // wall-clock time of scoring
}

func (r Result) String() string {
	return fmt.Sprintf("%s (%.2f), indicators: [%s]", r.Label, r.Confidence, strings.Join(r.Indicators, "; "))
}

// Stats is a static description of the detector model.
// MaxSequenceLength and VocabSize are descriptive only and have no effect on scoring.
type Stats struct {
	ModelType         string `json:"model_type"`
	Version           string `json:"version"`
	IsInitialized     bool   `json:"is_initialized"`
	MaxSequenceLength int    `json:"max_sequence_length"`
	VocabSize         int    `json:"vocab_size"`
	Note              string `json:"note"`
}

// Check is a message with its analysis result, kept for history and storage
type Check struct {
	Msg    string    `json:"msg"`
	Result Result    `json:"result"`
	Time   time.Time `json:"time"`
}
