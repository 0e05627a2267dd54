package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishti/smsguard/app/storage/engine"
	"github.com/phishti/smsguard/lib/phishcheck"
)

func TestDetections_NewDetections(t *testing.T) {
	db, err := engine.NewSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewDetections(context.Background(), db)
	require.NoError(t, err)

	var exists int
	err = db.Get(&exists, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='detections'")
	require.NoError(t, err)
	assert.Equal(t, 1, exists)

	_, err = NewDetections(context.Background(), nil)
	assert.Error(t, err)
}

func TestDetections_WriteRead(t *testing.T) {
	db, err := engine.NewSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	ds, err := NewDetections(ctx, db)
	require.NoError(t, err)

	ts := time.Now().Add(-time.Minute)
	id1, err := ds.Write(ctx, "cli", phishcheck.Check{Msg: "hello", Time: ts,
		Result: phishcheck.Result{Confidence: 0.05, Label: phishcheck.LabelLegitimate}})
	require.NoError(t, err)
	id2, err := ds.Write(ctx, "api", phishcheck.Check{Msg: "verify now http://x.com", Time: ts.Add(time.Second),
		Result: phishcheck.Result{IsPhishing: true, Confidence: 0.83, Label: phishcheck.LabelPhishing,
			Indicators: []string{"Urgent language: 'verify'", "Contains URL"}}})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := ds.Read(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, id2, entries[0].ID)
	assert.Equal(t, "api", entries[0].Source)
	assert.True(t, entries[0].Phishing)
	assert.InDelta(t, 0.83, entries[0].Confidence, 1e-9)
	assert.Equal(t, []string{"Urgent language: 'verify'", "Contains URL"}, entries[0].Indicators)
	assert.WithinDuration(t, ts.Add(time.Second), entries[0].Timestamp, time.Millisecond)

	assert.Equal(t, id1, entries[1].ID)
	assert.False(t, entries[1].Phishing)
	assert.Empty(t, entries[1].Indicators)

	entries, err = ds.Read(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "verify now http://x.com", entries[0].Text)

	st, err := ds.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DetectionStats{Total: 2, Phishing: 1}, st)
}

func TestDetections_StatsEmpty(t *testing.T) {
	db, err := engine.NewSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ds, err := NewDetections(context.Background(), db)
	require.NoError(t, err)
	st, err := ds.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DetectionStats{}, st)
}

func TestDetections_Migrate(t *testing.T) {
	db, err := engine.NewSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	// table from an older version, without source column
	_, err = db.Exec(`CREATE TABLE detections (id TEXT PRIMARY KEY, text TEXT, phishing BOOLEAN, confidence REAL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP, indicators TEXT)`)
	require.NoError(t, err)

	ds, err := NewDetections(ctx, db)
	require.NoError(t, err)
	_, err = ds.Write(ctx, "cli", phishcheck.Check{Msg: "hi"})
	require.NoError(t, err)

	entries, err := ds.Read(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cli", entries[0].Source)

	// second init doesn't fail on already migrated table
	_, err = NewDetections(ctx, db)
	require.NoError(t, err)
}

func TestDetections_Concurrent(t *testing.T) {
	db, err := engine.NewSqlite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	ds, err := NewDetections(ctx, db)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, e := ds.Write(ctx, "api", phishcheck.Check{Msg: "msg"})
			assert.NoError(t, e)
		}()
		go func() {
			defer wg.Done()
			_, e := ds.Read(ctx, 5)
			assert.NoError(t, e)
		}()
	}
	wg.Wait()

	st, err := ds.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Total)
}
