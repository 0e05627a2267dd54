package harness

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishti/smsguard/lib/phishcheck"
	"github.com/phishti/smsguard/lib/smsguard"
)

type analyzerFunc func(msg string) (phishcheck.Result, error)

func (f analyzerFunc) Analyze(msg string) (phishcheck.Result, error) { return f(msg) }

func TestRun_Builtin(t *testing.T) {
	d, err := smsguard.NewDetector(smsguard.Config{})
	require.NoError(t, err)

	rep, err := Run(d, Builtin())
	require.NoError(t, err)
	require.Len(t, rep.Items, 10)
	assert.Equal(t, 9, rep.Correct)
	assert.InDelta(t, 90.0, rep.Accuracy(), 1e-9)

	// the lottery message has only a url marker
	assert.False(t, rep.Items[4].Correct)
	assert.Equal(t, []string{"Contains URL"}, rep.Items[4].Result.Indicators)
}

func TestRun_Error(t *testing.T) {
	calls := 0
	a := analyzerFunc(func(msg string) (phishcheck.Result, error) {
		calls++
		if calls == 2 {
			return phishcheck.Result{}, errors.New("oops")
		}
		return phishcheck.Result{IsPhishing: true}, nil
	})
	rep, err := Run(a, []Sample{{Msg: "1", Phishing: true}, {Msg: "2"}, {Msg: "3"}})
	require.EqualError(t, err, "failed to analyze sample 2: oops")
	assert.Len(t, rep.Items, 1)
	assert.Equal(t, 1, rep.Correct)
}

func TestReport_Accuracy(t *testing.T) {
	assert.InDelta(t, 0.0, Report{}.Accuracy(), 1e-9)
	rep := Report{Items: make([]Item, 4), Correct: 3}
	assert.InDelta(t, 75.0, rep.Accuracy(), 1e-9)
}

func TestReport_Print(t *testing.T) {
	rep := Report{
		Items: []Item{
			{Sample: Sample{Msg: "urgent login http", Phishing: true},
				Result: phishcheck.Result{IsPhishing: true, Confidence: 0.82, Indicators: []string{"a", "b"}}, Correct: true},
			{Sample: Sample{Msg: "hello", Phishing: true}, Result: phishcheck.Result{Confidence: 0.05}},
		},
		Correct: 1,
	}
	buf := bytes.Buffer{}
	rep.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Test 1: urgent login http\nExpected: Phishing\nPredicted: Phishing\nConfidence: 0.8200\n")
	assert.Contains(t, out, "Indicators: [a, b]\n")
	assert.Contains(t, out, "Test 2: hello\nExpected: Phishing\nPredicted: Legitimate\n")
	assert.Contains(t, out, "Correct Predictions: 1/2\nAccuracy: 50.00%\n")
}

func TestParse(t *testing.T) {
	t.Run("good", func(t *testing.T) {
		samples, err := Parse(strings.NewReader("- msg: hello\n- msg: verify now\n  phishing: true\n"))
		require.NoError(t, err)
		assert.Equal(t, []Sample{{Msg: "hello"}, {Msg: "verify now", Phishing: true}}, samples)
	})

	t.Run("empty", func(t *testing.T) {
		samples, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("bad", func(t *testing.T) {
		_, err := Parse(strings.NewReader("msg: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	require.NoError(t, os.WriteFile(good, []byte("- msg: hi\n- msg: urgent\n  phishing: true\n"), 0o600))
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("{not: [a list"), 0o600))

	samples, err := Load(good)
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	samples, err = Load(good, bad, filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "bad.yml")
	assert.Contains(t, err.Error(), "missing.yml")
	assert.Len(t, samples, 2, "samples from good files are kept")
}
