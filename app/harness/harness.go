// Package harness runs labelled sample messages through the detector and reports accuracy.
package harness

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/phishti/smsguard/lib/phishcheck"
)

// Sample is a message with the expected verdict
type Sample struct {
	Msg      string `yaml:"msg"`
	Phishing bool   `yaml:"phishing"`
}

// Analyzer is anything able to analyze a message, satisfied by smsguard.Detector and smsguard.Registry
type Analyzer interface {
	Analyze(msg string) (phishcheck.Result, error)
}

// Item is a single sample with its result
type Item struct {
	Sample
	Result  phishcheck.Result
	Correct bool
}

// Report is a result of the harness run
type Report struct {
	Items   []Item
	Correct int
}

// Builtin returns the default set of labelled samples
func Builtin() []Sample {
	return []Sample{
		{Msg: "URGENT: Your account will be suspended. Click here to verify immediately!", Phishing: true},
		{Msg: "Hi, how are you doing today? Hope you're well.", Phishing: false},
		{Msg: "Your credit card has been blocked. Verify now: http://fake-bank.com", Phishing: true},
		{Msg: "Thanks for the meeting yesterday. Let's follow up next week.", Phishing: false},
		{Msg: "Congratulations! You've won $1000. Claim now by clicking: http://scam-lottery.com", Phishing: true},
		{Msg: "Don't forget about dinner tonight at 7 PM.", Phishing: false},
		{Msg: "Your PayPal account is limited. Restore access: http://fake-paypal.com/restore", Phishing: true},
		{Msg: "The weather is beautiful today. Perfect for a walk.", Phishing: false},
		{Msg: "Bank security notice: Update your details now: http://scam-bank.com/update", Phishing: true},
		{Msg: "Your package was delivered successfully.", Phishing: false},
	}
}

// Parse reads yaml list of samples
func Parse(r io.Reader) ([]Sample, error) {
	var res []Sample
	if err := yaml.NewDecoder(r).Decode(&res); err != nil {
		if err == io.EOF {
			return []Sample{}, nil // empty file
		}
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return res, nil
}

// Load reads samples from all yaml files. Files failed to load are reported together,
// samples from the good files are still returned.
func Load(paths ...string) ([]Sample, error) {
	var errs *multierror.Error
	res := []Sample{}
	for _, p := range paths {
		samples, err := loadFile(p)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		res = append(res, samples...)
	}
	return res, errs.ErrorOrNil()
}

func loadFile(path string) ([]Sample, error) {
	fh, err := os.Open(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file %s: %w", path, err)
	}
	defer fh.Close()
	samples, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return samples, nil
}

// Run analyzes all samples. Stops on the first analysis error.
func Run(a Analyzer, samples []Sample) (Report, error) {
	rep := Report{Items: make([]Item, 0, len(samples))}
	for i, s := range samples {
		res, err := a.Analyze(s.Msg)
		if err != nil {
			return rep, fmt.Errorf("failed to analyze sample %d: %w", i+1, err)
		}
		item := Item{Sample: s, Result: res, Correct: res.IsPhishing == s.Phishing}
		if item.Correct {
			rep.Correct++
		}
		rep.Items = append(rep.Items, item)
	}
	return rep, nil
}

// Accuracy returns share of correct predictions in percents, 0 for empty report
func (r Report) Accuracy() float64 {
	if len(r.Items) == 0 {
		return 0
	}
	return float64(r.Correct) / float64(len(r.Items)) * 100
}

// Print writes per-sample details and the summary
func (r Report) Print(w io.Writer) {
	verdict := func(phishing bool) string {
		if phishing {
			return "Phishing"
		}
		return "Legitimate"
	}
	mark := map[bool]string{true: color.GreenString("✓"), false: color.RedString("✗")}

	for i, it := range r.Items {
		fmt.Fprintf(w, "\nTest %d: %s\n", i+1, it.Msg)
		fmt.Fprintf(w, "Expected: %s\n", verdict(it.Phishing))
		fmt.Fprintf(w, "Predicted: %s\n", verdict(it.Result.IsPhishing))
		fmt.Fprintf(w, "Confidence: %.4f\n", it.Result.Confidence)
		fmt.Fprintf(w, "Processing Time: %dms\n", it.Result.ProcessingTimeMS)
		fmt.Fprintf(w, "Indicators: [%s]\n", strings.Join(it.Result.Indicators, ", "))
		fmt.Fprintf(w, "Correct: %s\n", mark[it.Correct])
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 42))
	fmt.Fprintf(w, "Correct Predictions: %d/%d\n", r.Correct, len(r.Items))
	fmt.Fprintf(w, "Accuracy: %.2f%%\n", r.Accuracy())
}
