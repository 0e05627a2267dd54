package smsguard

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/phishti/smsguard/lib/phishcheck"
)

// Default is the process-wide registry
var Default = NewRegistry()

// Registry holds zero or one initialized Detector.
// Readers are lock-free and see either nothing or a fully built detector.
type Registry struct {
	detector atomic.Pointer[Detector]
	lock     sync.Mutex // serializes initialization
}

// NewRegistry makes an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Initialize creates and publishes a detector. Idempotent, if a detector is already installed
// it is kept and nil returned.
func (r *Registry) Initialize(cfg Config) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.detector.Load() != nil {
		log.Printf("[DEBUG] detector already initialized, skip")
		return nil
	}

	d, err := NewDetector(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	r.detector.Store(d)
	log.Printf("[INFO] detector initialized, version %s", d.Version)
	return nil
}

// IsReady returns true if a detector is installed
func (r *Registry) IsReady() bool {
	return r.detector.Load().Ready()
}

// Current returns installed detector or ErrNotInitialized
func (r *Registry) Current() (*Detector, error) {
	d := r.detector.Load()
	if !d.Ready() {
		return nil, ErrNotInitialized
	}
	return d, nil
}

// Analyze analyzes the message with the installed detector
func (r *Registry) Analyze(msg string) (phishcheck.Result, error) {
	d, err := r.Current()
	if err != nil {
		return phishcheck.Result{}, err
	}
	return d.Analyze(msg)
}

// Stats describes the installed detector, or an uninitialized one if nothing installed yet
func (r *Registry) Stats() phishcheck.Stats {
	return r.detector.Load().Stats()
}
