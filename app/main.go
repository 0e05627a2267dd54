package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/fileutils"
	"github.com/go-pkgz/lgr"
	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/phishti/smsguard/app/harness"
	"github.com/phishti/smsguard/app/server"
	"github.com/phishti/smsguard/app/storage"
	"github.com/phishti/smsguard/app/storage/engine"
	"github.com/phishti/smsguard/lib/phishcheck"
	"github.com/phishti/smsguard/lib/smsguard"
)

type options struct {
	Msgs  []string `short:"m" long:"msg" description:"message to check, can be repeated"`
	Stdin bool     `long:"stdin" env:"STDIN" description:"read messages to check from stdin, one per line"`
	JSON  bool     `long:"json" env:"JSON" description:"print results as json lines"`
	DB    string   `long:"db" env:"DB" description:"detections database, i.e. smsguard.db, disabled if empty"`

	Harness struct {
		Enabled bool     `long:"enabled" env:"ENABLED" description:"run labelled samples and report accuracy"`
		Samples []string `long:"samples" env:"SAMPLES" env-delim:"," description:"yaml samples files, builtin samples if not set"`
		Watch   bool     `long:"watch" env:"WATCH" description:"re-run harness on samples file changes"`
	} `group:"harness" namespace:"harness" env-namespace:"HARNESS"`

	Server struct {
		Enabled     bool          `long:"enabled" env:"ENABLED" description:"enable http api server"`
		ListenAddr  string        `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		CacheTTL    time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"5m" description:"result cache ttl, 0 to disable"`
		HistorySize int           `long:"history" env:"HISTORY" default:"100" description:"number of recent checks to keep"`
		RateLimit   float64       `long:"rate-limit" env:"RATE_LIMIT" default:"50" description:"max requests per second per client"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable phishing detections rotated log"`
		FileName   string `long:"file" env:"FILE" default:"smsguard-detections.log" description:"location of detections log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("smsguard %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg)
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options, in io.Reader, out io.Writer) (err error) {
	if err = smsguard.Default.Initialize(smsguard.Config{Version: revision}); err != nil {
		return fmt.Errorf("can't initialize detector: %w", err)
	}

	rec, err := makeRecorder(ctx, opts)
	if err != nil {
		return fmt.Errorf("can't make detections recorder: %w", err)
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	if opts.Harness.Enabled {
		return runHarness(ctx, opts, out)
	}

	if opts.Server.Enabled {
		srvCfg := server.Config{
			ListenAddr:  opts.Server.ListenAddr,
			Version:     revision,
			Detector:    smsguard.Default,
			Recorder:    rec,
			HistorySize: opts.Server.HistorySize,
			CacheTTL:    opts.Server.CacheTTL,
			RateLimit:   opts.Server.RateLimit,
		}
		if rec.store != nil {
			srvCfg.Store = rec.store
		}
		return server.NewServer(srvCfg).Run(ctx)
	}

	msgs := opts.Msgs
	if opts.Stdin {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				msgs = append(msgs, line)
			}
		}
		if err = scanner.Err(); err != nil {
			return fmt.Errorf("can't read stdin: %w", err)
		}
	}
	if len(msgs) == 0 {
		return errors.New("no messages to check, use --msg, --stdin, --harness.enabled or --server.enabled")
	}
	return checkMessages(ctx, smsguard.Default, msgs, rec, opts.JSON, out)
}

// checkMessages analyzes messages and prints results
func checkMessages(ctx context.Context, a harness.Analyzer, msgs []string, rec server.Recorder, asJSON bool, out io.Writer) error {
	for _, msg := range msgs {
		res, err := a.Analyze(msg)
		if err != nil {
			return fmt.Errorf("can't analyze %q: %w", msg, err)
		}
		rec.Record(ctx, "cli", phishcheck.Check{Msg: msg, Result: res, Time: time.Now()})

		if asJSON {
			line, err := json.Marshal(struct {
				Msg string `json:"msg"`
				phishcheck.Result
			}{Msg: msg, Result: res})
			if err != nil {
				return fmt.Errorf("can't marshal result: %w", err)
			}
			fmt.Fprintln(out, string(line))
			continue
		}

		label := color.GreenString(string(res.Label))
		if res.IsPhishing {
			label = color.RedString(string(res.Label))
		}
		fmt.Fprintf(out, "%s %.2f %q\n", label, res.Confidence, msg)
		for _, ind := range res.Indicators {
			fmt.Fprintf(out, "  - %s\n", ind)
		}
	}
	return nil
}

func runHarness(ctx context.Context, opts options, out io.Writer) error {
	samples := harness.Builtin()
	if len(opts.Harness.Samples) > 0 {
		for _, f := range opts.Harness.Samples {
			if !fileutils.IsFile(f) {
				return fmt.Errorf("samples file %s not found", f)
			}
		}
		var err error
		if samples, err = harness.Load(opts.Harness.Samples...); err != nil {
			return fmt.Errorf("can't load samples: %w", err)
		}
	}

	report := func(samples []harness.Sample) error {
		rep, err := harness.Run(smsguard.Default, samples)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "SMS phishing detection harness")
		rep.Print(out)
		return nil
	}

	if err := report(samples); err != nil {
		return err
	}

	if !opts.Harness.Watch {
		return nil
	}
	if len(opts.Harness.Samples) != 1 {
		return errors.New("harness watch requires exactly one samples file")
	}
	log.Printf("[INFO] watching %s for changes", opts.Harness.Samples[0])
	return harness.Watch(ctx, opts.Harness.Samples[0], report)
}

// detectionRecorder writes all checks to the store and phishing ones to the detections log
type detectionRecorder struct {
	store  *storage.Detections
	db     *engine.SQL
	logWr  io.WriteCloser
	lock   sync.Mutex
	closed bool
}

func makeRecorder(ctx context.Context, opts options) (*detectionRecorder, error) {
	logWr, err := makeDetectionsLogWriter(opts)
	if err != nil {
		return nil, err
	}
	res := &detectionRecorder{logWr: logWr}
	if opts.DB == "" {
		return res, nil
	}

	if res.db, err = engine.New(opts.DB); err != nil {
		_ = logWr.Close()
		return nil, fmt.Errorf("can't open db %s: %w", opts.DB, err)
	}
	if res.store, err = storage.NewDetections(ctx, res.db); err != nil {
		return nil, multierror.Append(err, res.db.Close(), logWr.Close())
	}
	log.Printf("[INFO] detections storage enabled, %s", opts.DB)
	return res, nil
}

// Record saves the check, errors are logged and not returned as recording is not critical
func (r *detectionRecorder) Record(ctx context.Context, source string, chk phishcheck.Check) {
	if r.store != nil {
		if _, err := r.store.Write(ctx, source, chk); err != nil {
			log.Printf("[WARN] can't save detection, %v", err)
		}
	}
	if !chk.Result.IsPhishing {
		return
	}

	text := strings.TrimSpace(strings.ReplaceAll(chk.Msg, "\n", " "))
	log.Printf("[INFO] phishing detected from %s, confidence %.2f", source, chk.Result.Confidence)
	log.Printf("[DEBUG] phishing message: %s", text)
	m := struct {
		TimeStamp  string   `json:"ts"`
		Source     string   `json:"source"`
		Confidence float64  `json:"confidence"`
		Indicators []string `json:"indicators"`
		Text       string   `json:"text"`
	}{
		TimeStamp:  chk.Time.In(time.Local).Format(time.RFC3339),
		Source:     source,
		Confidence: chk.Result.Confidence,
		Indicators: chk.Result.Indicators,
		Text:       text,
	}
	line, err := json.Marshal(&m)
	if err != nil {
		log.Printf("[WARN] can't marshal json, %v", err)
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, err := r.logWr.Write(append(line, '\n')); err != nil {
		log.Printf("[WARN] can't write to log, %v", err)
	}
}

// Close closes the log writer and the database, safe to call more than once
func (r *detectionRecorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs *multierror.Error
	if err := r.logWr.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("can't close detections log: %w", err))
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("can't close db: %w", err))
		}
	}
	return errs.ErrorOrNil()
}

// makeDetectionsLogWriter creates rotated log writer for phishing detections
func makeDetectionsLogWriter(opts options) (io.WriteCloser, error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	maxSize, err := sizeParse(opts.Logger.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", err)
	}
	maxSize /= 1048576

	log.Printf("[INFO] detections log enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), // in MB
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

func sizeParse(inp string) (uint64, error) {
	if inp == "" {
		return 0, errors.New("empty value")
	}
	for i, sfx := range []string{"k", "m", "g", "t"} {
		if strings.HasSuffix(inp, strings.ToUpper(sfx)) || strings.HasSuffix(inp, strings.ToLower(sfx)) {
			val, err := strconv.Atoi(inp[:len(inp)-1])
			if err != nil {
				return 0, fmt.Errorf("can't parse %s: %w", inp, err)
			}
			return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
		}
	}
	return strconv.ParseUint(inp, 10, 64)
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
