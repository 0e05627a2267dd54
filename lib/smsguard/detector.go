package smsguard

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/phishti/smsguard/lib/phishcheck"
)

// descriptive model constants reported by stats, no effect on scoring
const (
	DefaultVersion    = "0.1.0"
	ModelType         = "Heuristic DistilBERT"
	MaxSequenceLength = 512
	VocabSize         = 30522
	statsNote         = "Deterministic keyword heuristic, simulates DistilBERT output"
)

// ErrNotInitialized returned when analysis is requested before a detector is ready
var ErrNotInitialized = errors.New("detector not initialized")

// ErrInitialization returned when a detector can't be constructed
var ErrInitialization = errors.New("detector initialization failed")

var setupOnce sync.Once

// Detector is an SMS phishing detector. Immutable after construction, thread-safe.
type Detector struct {
	Config
	initialized bool
}

// Config is a set of parameters for Detector.
type Config struct {
	Version string // version reported in stats, DefaultVersion if empty
}

// NewDetector makes a new Detector with the given config.
// It can't fail today, but callers must handle the error as loading a model may be added later.
func NewDetector(cfg Config) (*Detector, error) {
	setupOnce.Do(func() {
		log.Printf("[INFO] sms phishing detector service started (heuristic scorer)")
	})
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	log.Printf("[DEBUG] initializing detector, version %s", cfg.Version)
	return &Detector{Config: cfg, initialized: true}, nil
}

// Analyze scores the message and returns the result with elapsed scoring time.
func (d *Detector) Analyze(msg string) (phishcheck.Result, error) {
	if !d.Ready() {
		return phishcheck.Result{}, ErrNotInitialized
	}

	st := time.Now()
	isPhishing, confidence, indicators := score(msg)
	elapsed := time.Since(st)

	return phishcheck.Result{
		IsPhishing:       isPhishing,
		Confidence:       confidence,
		Label:            phishcheck.LabelFor(isPhishing),
		Indicators:       indicators,
		ProcessingTimeMS: uint64(max(elapsed.Milliseconds(), 0)),
	}, nil
}

// Ready returns true if the detector was created with NewDetector
func (d *Detector) Ready() bool {
	return d != nil && d.initialized
}

// Stats returns a static description of the detector
func (d *Detector) Stats() phishcheck.Stats {
	res := phishcheck.Stats{
		ModelType:         ModelType,
		Version:           DefaultVersion,
		IsInitialized:     d.Ready(),
		MaxSequenceLength: MaxSequenceLength,
		VocabSize:         VocabSize,
		Note:              statsNote,
	}
	if d.Ready() {
		res.Version = d.Version
	}
	return res
}
