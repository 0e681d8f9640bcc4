package stats_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/stats"
)

func TestSnapshot_TracksTotalsAndRate(t *testing.T) {
	r := stats.New()
	r.RecordExecs(100)
	r.RecordRound()
	r.RecordCrash()

	snap := r.Snapshot(42, 0.25, 1)
	assert.Equal(t, uint64(100), snap.TotalExecs)
	assert.Equal(t, uint64(1), snap.EngineRounds)
	assert.Equal(t, 42, snap.CorpusSize)
	assert.InDelta(t, 0.25, snap.CoverageFraction, 0.0001)
	assert.Equal(t, 1, snap.CrashesFound)

	r.RecordExecs(50)
	snap2 := r.Snapshot(42, 0.25, 1)
	assert.Equal(t, uint64(150), snap2.TotalExecs)
	assert.GreaterOrEqual(t, snap2.ExecsPerSecond, 0.0)
}

func TestWriteSnapshot_PersistsJSON(t *testing.T) {
	dir := t.TempDir()
	snap := stats.Snapshot{TotalExecs: 7, CorpusSize: 3, CrashesFound: 1}

	require.NoError(t, stats.WriteSnapshot(dir, snap))

	data, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)

	var got stats.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(7), got.TotalExecs)
	assert.Equal(t, 3, got.CorpusSize)
}

func TestStartServer_ExposesMetrics(t *testing.T) {
	r := stats.New()
	r.RecordExecs(5)

	srv, err := stats.StartServer("127.0.0.1:0", r, logging.Default("test"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	var resp *http.Response
	require.Eventually(t, func() bool {
		var getErr error
		resp, getErr = http.Get("http://" + srv.Addr() + "/metrics")
		return getErr == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jsfuzz_execs_total 5")
	assert.True(t, strings.Contains(string(body), "jsfuzz_corpus_size"))
}
