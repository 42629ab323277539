package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ribeiro-lab/photond/emva"
	"github.com/ribeiro-lab/photond/sim"
	"github.com/ribeiro-lab/photond/store"
)

// slowCam stretches acquisitions so teardown has a frame in flight to
// collide with
type slowCam struct {
	*sim.Camera

	mu        sync.Mutex
	inFrame   bool
	overlap   bool
	finalized bool
}

func (s *slowCam) GetFrame() ([]uint16, error) {
	s.mu.Lock()
	s.inFrame = true
	s.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	buf, err := s.Camera.GetFrame()
	s.mu.Lock()
	s.inFrame = false
	s.mu.Unlock()
	return buf, err
}

func (s *slowCam) Finalize() error {
	s.mu.Lock()
	if s.inFrame {
		s.overlap = true
	}
	s.finalized = true
	s.mu.Unlock()
	return s.Camera.Finalize()
}

func testConfig() Config {
	cfg := Defaults()
	cfg.Addr = "127.0.0.1:0"
	cfg.Mock = true
	cfg.BaselineFrames = 2
	cfg.ROI = ROI{Width: 16, Height: 16}
	return cfg
}

func TestRunFinalizesCameraAfterLoopExits(t *testing.T) {
	cam := &slowCam{Camera: sim.New(sim.Config{DarkADU: 100, NoiseADU: 2, Seed: 1})}
	d, err := New(testConfig(), WithCamera(cam))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.After(10 * time.Second)
	for d.Counter().Stats().Frames < 3 {
		select {
		case <-deadline:
			t.Fatal("run loop did not make progress")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	require.NoError(t, <-done)

	cam.mu.Lock()
	defer cam.mu.Unlock()
	assert.True(t, cam.finalized)
	assert.False(t, cam.overlap, "camera finalized while a frame was in flight")
}

func TestRecorderControlBypassesLock(t *testing.T) {
	cam := sim.New(sim.Config{DarkADU: 100, NoiseADU: 2, Seed: 1})
	d, err := New(testConfig(), WithCamera(cam))
	require.NoError(t, err)
	defer d.Close()

	srv := httptest.NewServer(d.srv.Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/camera/lock", "application/json", strings.NewReader(`{"bool": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// camera fiddling is refused while locked
	resp, err = http.Get(srv.URL + "/camera/exposure-time")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	// recording control is not behind the lock
	resp, err = http.Post(srv.URL+"/autowrite/enabled", "application/json", strings.NewReader(`{"bool": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewRejectsBadCalibration(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(t.TempDir(), "archive.sqlite3")
	cfg.Calibration = emva.Calibration{Gain: 0.35}
	cam := sim.New(sim.Config{DarkADU: 100, NoiseADU: 2, Seed: 1})
	_, err := New(cfg, WithCamera(cam))
	require.Error(t, err)
	// New cleaned up after itself; the archive opens fresh
	st, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}
