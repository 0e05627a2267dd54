package phishcheck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFor(t *testing.T) {
	assert.Equal(t, LabelPhishing, LabelFor(true))
	assert.Equal(t, LabelLegitimate, LabelFor(false))
}

func TestResult_JSON(t *testing.T) {
	r := Result{IsPhishing: true, Confidence: 0.95, Label: LabelPhishing,
		Indicators: []string{"Contains URL", "Very high ML confidence"}, ProcessingTimeMS: 3}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_phishing":true,"confidence":0.95,"label":"phishing",
		"indicators":["Contains URL","Very high ML confidence"],"processing_time_ms":3}`, string(data))

	var parsed Result
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, r, parsed)
}

func TestResult_String(t *testing.T) {
	r := Result{Confidence: 0.05, Label: LabelLegitimate, Indicators: []string{"a", "b"}}
	assert.Equal(t, "legitimate (0.05), indicators: [a; b]", r.String())
}

func TestStats_JSON(t *testing.T) {
	s := Stats{ModelType: "m", Version: "v", MaxSequenceLength: 512, VocabSize: 30522, Note: "n"}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model_type":"m","version":"v","is_initialized":false,
		"max_sequence_length":512,"vocab_size":30522,"note":"n"}`, string(data))
}
