package smsguard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsReady())

	_, err := r.Current()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.Analyze("urgent")
	assert.ErrorIs(t, err, ErrNotInitialized)

	st := r.Stats()
	assert.False(t, st.IsInitialized)
	assert.Equal(t, 512, st.MaxSequenceLength)
	assert.Equal(t, 30522, st.VocabSize)
	assert.Equal(t, DefaultVersion, st.Version)

	require.NoError(t, r.Initialize(Config{Version: "1.0.0"}))
	assert.True(t, r.IsReady())
	assert.True(t, r.Stats().IsInitialized)

	d, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", d.Version)

	res, err := r.Analyze("urgent login http")
	require.NoError(t, err)
	assert.True(t, res.IsPhishing)
}

func TestRegistry_InitializeIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(Config{Version: "first"}))
	d1, err := r.Current()
	require.NoError(t, err)

	require.NoError(t, r.Initialize(Config{Version: "second"}))
	d2, err := r.Current()
	require.NoError(t, err)

	assert.Same(t, d1, d2, "second initialize keeps the installed detector")
	assert.Equal(t, "first", r.Stats().Version)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	detectors := make(chan *Detector, 100)

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Initialize(Config{}))
		}()
		go func() {
			defer wg.Done()
			d, err := r.Current()
			if err != nil {
				assert.ErrorIs(t, err, ErrNotInitialized)
				return
			}
			assert.True(t, d.Ready(), "published detector is fully built")
			detectors <- d
		}()
	}
	wg.Wait()
	close(detectors)

	final, err := r.Current()
	require.NoError(t, err)
	for d := range detectors {
		assert.Same(t, final, d)
	}
}
