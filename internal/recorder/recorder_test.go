package recorder_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(false, false)
}

func TestRecordAndReadBack(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readings.db")

	sink, err := recorder.NewService(recorder.Config{DBPath: dbPath, Enabled: true})
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()

	for i, watts := range []float64{5, 6, 7} {
		err := sink.Record(ctx, &recorder.Reading{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Watts:     watts,
			Mode:      recorder.ModeMonitor,
		})
		require.NoError(t, err)
	}
	require.NoError(t, sink.Close())

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT watts, mode FROM readings ORDER BY timestamp")
	require.NoError(t, err)
	defer rows.Close()

	var got []float64
	for rows.Next() {
		var watts float64
		var mode string
		require.NoError(t, rows.Scan(&watts, &mode))
		assert.Equal(t, "monitor", mode)
		got = append(got, watts)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []float64{5, 6, 7}, got)
}

func TestDisabledRecorderIsNoop(t *testing.T) {
	sink, err := recorder.NewService(recorder.Config{Enabled: false})
	require.NoError(t, err)

	err = sink.Record(context.Background(), &recorder.Reading{Watts: 5, Mode: recorder.ModeMeasure})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestEnabledRecorderRequiresPath(t *testing.T) {
	_, err := recorder.NewService(recorder.Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recorder_invalid_db_path")
}

func TestNilReadingRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readings.db")

	sink, err := recorder.NewService(recorder.Config{DBPath: dbPath, Enabled: true})
	require.NoError(t, err)
	defer sink.Close()

	assert.Error(t, sink.Record(context.Background(), nil))
}
