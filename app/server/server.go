// Package server provides http api for message checks, detector stats and recent results.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/phishti/smsguard/app/storage"
	"github.com/phishti/smsguard/lib/phishcheck"
	"github.com/phishti/smsguard/lib/smsguard"
)

// Server is a http api server for the phishing detector
type Server struct {
	Config
	history *phishcheck.LastResults
	cache   cache.Cache[string, phishcheck.Result]
	metrics *metrics
}

// Config defines server parameters
type Config struct {
	ListenAddr  string        // listen address
	Version     string        // app version, reported in App-Version header
	Detector    Detector      // detector to use, smsguard.Registry or smsguard.Detector
	Recorder    Recorder      // optional, records checks
	Store       Store         // optional, serves stored detections
	HistorySize int           // number of recent checks to keep in memory
	CacheTTL    time.Duration // ttl of cached results, no caching if 0
	RateLimit   float64       // max requests per second per client ip
}

// Detector analyzes messages
type Detector interface {
	Analyze(msg string) (phishcheck.Result, error)
	Stats() phishcheck.Stats
}

// Recorder saves checked messages
type Recorder interface {
	Record(ctx context.Context, source string, chk phishcheck.Check)
}

// Store provides access to stored detections
type Store interface {
	Read(ctx context.Context, limit int) ([]storage.Detection, error)
	Stats(ctx context.Context) (storage.DetectionStats, error)
}

// CheckRequest is a body of POST /check
type CheckRequest struct {
	Msg string `json:"msg"`
}

// NewServer makes a server with the given config
func NewServer(cfg Config) *Server {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	res := &Server{Config: cfg, history: phishcheck.NewLastResults(cfg.HistorySize), metrics: newMetrics()}
	if cfg.CacheTTL > 0 {
		res.cache = cache.NewCache[string, phishcheck.Result]().WithTTL(cfg.CacheTTL).WithMaxKeys(10000)
	}
	return res
}

// Run starts server and accepts requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.ListenAddr, Handler: s.routes(), ReadTimeout: 5 * time.Second,
		WriteTimeout: 5 * time.Second, ReadHeaderTimeout: time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
			return
		}
		log.Printf("[INFO] server stopped")
	}()

	log.Printf("[INFO] start server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	lmt := tollbooth.NewLimiter(s.RateLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr", IndexFromRight: 0})

	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.AppInfo("smsguard", "phishti", s.Version), rest.Ping)
	router.Use(tollbooth.HTTPMiddleware(lmt))
	router.Use(rest.SizeLimit(64 * 1024))

	router.HandleFunc("POST /check", s.checkMsgHandler)
	router.HandleFunc("GET /stats", s.statsHandler)
	router.HandleFunc("GET /recent", s.recentHandler)
	router.HandleFunc("GET /detections", s.detectionsHandler)
	router.Handle("GET /metrics", s.metrics.handler())
	return router
}

// checkMsgHandler handles POST /check with {"msg": "text"} and responds with detection result
func (s *Server) checkMsgHandler(w http.ResponseWriter, r *http.Request) {
	req := CheckRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	res, cached, err := s.analyze(req.Msg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, smsguard.ErrNotInitialized) {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		rest.RenderJSON(w, rest.JSON{"error": "can't analyze message", "details": err.Error()})
		log.Printf("[WARN] can't analyze message: %v", err)
		return
	}
	s.metrics.observe(res, cached)

	chk := phishcheck.Check{Msg: req.Msg, Result: res, Time: time.Now()}
	s.history.Push(chk)
	if s.Recorder != nil {
		s.Recorder.Record(r.Context(), "api", chk)
	}
	rest.RenderJSON(w, res)
}

// analyze returns cached result if any, results differ only in processing time
func (s *Server) analyze(msg string) (res phishcheck.Result, cached bool, err error) {
	if s.cache == nil {
		res, err = s.Detector.Analyze(msg)
		return res, false, err
	}

	key := msgHash(msg)
	if res, ok := s.cache.Get(key); ok {
		return res, true, nil
	}
	if res, err = s.Detector.Analyze(msg); err != nil {
		return res, false, err
	}
	s.cache.Set(key, res, 0)
	return res, false, nil
}

// statsHandler handles GET /stats, responds with detector stats
func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, s.Detector.Stats())
}

// recentHandler handles GET /recent?limit=N, responds with recent checks, newest first
func (s *Server) recentHandler(w http.ResponseWriter, r *http.Request) {
	limit := s.limitParam(r)
	rest.RenderJSON(w, s.history.Last(limit))
}

// detectionsHandler handles GET /detections?limit=N, responds with stored detections and summary
func (s *Server) detectionsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusNotFound)
		rest.RenderJSON(w, rest.JSON{"error": "detections storage is not enabled"})
		return
	}

	entries, err := s.Store.Read(r.Context(), s.limitParam(r))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't get detections", "details": err.Error()})
		return
	}
	stats, err := s.Store.Stats(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't get detections stats", "details": err.Error()})
		return
	}

	type detection struct {
		ID         string    `json:"id"`
		Text       string    `json:"text"`
		Source     string    `json:"source"`
		Phishing   bool      `json:"phishing"`
		Confidence float64   `json:"confidence"`
		Indicators []string  `json:"indicators"`
		Timestamp  time.Time `json:"timestamp"`
	}
	resp := make([]detection, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, detection{ID: e.ID, Text: e.Text, Source: e.Source, Phishing: e.Phishing,
			Confidence: e.Confidence, Indicators: e.Indicators, Timestamp: e.Timestamp})
	}
	rest.RenderJSON(w, rest.JSON{"detections": resp, "stats": stats})
}

func (s *Server) limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > s.HistorySize {
		return s.HistorySize
	}
	return limit
}

func msgHash(msg string) string {
	h := sha256.Sum256([]byte(msg))
	return hex.EncodeToString(h[:])
}
