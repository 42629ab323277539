package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ribeiro-lab/photond/counting"
	"github.com/ribeiro-lab/photond/emva"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession() counting.Session {
	return counting.Session{
		ID:        uuid.New(),
		Started:   time.Now(),
		Exposure:  5 * time.Millisecond,
		ROIWidth:  200,
		ROIHeight: 200,
		Cal:       emva.BFSU304S2M,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := testStore(t)
	sess := testSession()
	require.NoError(t, s.StartSession(sess))
	require.NoError(t, s.SetBaseline(sess.ID, 100.5, 2.1))

	recs, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sess.ID, recs[0].ID)
	assert.Equal(t, int64(5000), recs[0].ExposureUS)
	assert.True(t, recs[0].Calibrated)
	assert.InDelta(t, 100.5, recs[0].DarkADU, 1e-9)
	assert.InDelta(t, 2.1, recs[0].DarkStdADU, 1e-9)
}

func TestSetBaselineUnknownSession(t *testing.T) {
	s := testStore(t)
	err := s.SetBaseline(uuid.New(), 100, 2)
	assert.Error(t, err)
}

func TestSamplesRoundTrip(t *testing.T) {
	s := testStore(t)
	sess := testSession()
	require.NoError(t, s.StartSession(sess))
	for i := 0; i < 10; i++ {
		smp := counting.Sample{
			Frame:   i,
			Time:    time.Now(),
			MeanADU: 100 + float64(i),
			Photons: float64(i) * 10,
			SNR:     float64(i),
			Digest:  uint64(i) * 0xdeadbeef,
		}
		require.NoError(t, s.Append(sess.ID, smp))
	}

	got, err := s.RecentSamples(sess.ID, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// most recent first
	assert.Equal(t, 9, got[0].Frame)
	assert.Equal(t, 7, got[2].Frame)
	assert.Equal(t, uint64(9)*0xdeadbeef, got[0].Digest)

	stats, err := s.Stats(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Samples)
	assert.InDelta(t, 45, stats.MeanPhotons, 1e-9)
	assert.Equal(t, 0.0, stats.MinPhotons)
	assert.Equal(t, 90.0, stats.MaxPhotons)
}

func TestStatsEmptySession(t *testing.T) {
	s := testStore(t)
	stats, err := s.Stats(uuid.New())
	require.NoError(t, err)
	assert.Zero(t, stats.Samples)
	assert.Zero(t, stats.MeanPhotons)
}

func TestPrune(t *testing.T) {
	s := testStore(t)
	old := testSession()
	old.Started = time.Now().Add(-48 * time.Hour)
	recent := testSession()
	require.NoError(t, s.StartSession(old))
	require.NoError(t, s.StartSession(recent))
	require.NoError(t, s.Append(old.ID, counting.Sample{Frame: 0, Time: old.Started}))

	n, err := s.Prune(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recs, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, recent.ID, recs[0].ID)

	got, err := s.RecentSamples(old.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
