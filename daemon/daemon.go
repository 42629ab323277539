/*Package daemon wires the camera, counting pipeline, archive and HTTP
surface into a single long-running process.

The HTTP tree is:

	/camera/...    camera control (exposure, AOI, image capture)
	/autowrite/... FITS recorder control (root, prefix, enabled)
	/counter/...   photon counting (history, stats, baseline)
	/archive/...   recorded sessions
	/camera/lock   hardware mutex

A simulated camera stands in for the hardware when Mock is set, which makes
the daemon runnable on machines without the Spinnaker SDK attached to a
camera.
*/
package daemon

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ribeiro-lab/photond/camera"
	"github.com/ribeiro-lab/photond/counting"
	httpcamera "github.com/ribeiro-lab/photond/generichttp/camera"
	"github.com/ribeiro-lab/photond/imgrec"
	"github.com/ribeiro-lab/photond/server"
	"github.com/ribeiro-lab/photond/server/middleware/locker"
	"github.com/ribeiro-lab/photond/sim"
	"github.com/ribeiro-lab/photond/spinnaker"
	"github.com/ribeiro-lab/photond/store"
)

// Daemon is the assembled process
type Daemon struct {
	cfg     Config
	cam     camera.PictureTaker
	counter *counting.Counter
	archive *store.Store
	srv     *http.Server
	log     *logrus.Entry
}

// Option mutates a Daemon under construction
type Option func(*Daemon)

// WithCamera substitutes the camera, skipping driver selection.  New still
// initializes the camera and sets its exposure.
func WithCamera(cam camera.PictureTaker) Option {
	return func(d *Daemon) { d.cam = cam }
}

// New builds a Daemon from a resolved Config.  The camera is initialized and
// its exposure set before this returns.
func New(cfg Config, options ...Option) (*Daemon, error) {
	log := logrus.WithField("subsystem", "daemon")
	d := &Daemon{cfg: cfg, log: log}
	for _, opt := range options {
		opt(d)
	}

	if d.cam == nil {
		if cfg.Mock {
			log.Info("using simulated camera")
			d.cam = sim.New(sim.Config{DarkADU: 100, NoiseADU: 2})
		} else {
			c, err := spinnaker.Open(cfg.CameraIndex)
			if err != nil {
				return nil, errors.Wrap(err, "daemon: could not open camera")
			}
			d.cam = c
		}
	}
	cam := d.cam
	if err := cam.Initialize(); err != nil {
		return nil, errors.Wrap(err, "daemon: could not initialize camera")
	}
	if err := cam.SetExposureTime(time.Duration(cfg.ExposureUS) * time.Microsecond); err != nil {
		cam.Finalize()
		return nil, errors.Wrap(err, "daemon: could not set exposure time")
	}

	rec := &imgrec.Recorder{
		Root:    cfg.Record.Root,
		Prefix:  cfg.Record.Prefix,
		Enabled: cfg.Record.Enabled,
	}

	opts := []counting.Option{counting.WithRecorder(rec)}
	if cfg.Store.Enabled {
		archive, err := store.Open(cfg.Store.Path)
		if err != nil {
			cam.Finalize()
			return nil, err
		}
		d.archive = archive
		opts = append(opts, counting.WithSink(archive))
		log.WithField("path", cfg.Store.Path).Info("sample archive enabled")
	}

	counter, err := counting.New(cam, counting.Config{
		BaselineFrames: cfg.BaselineFrames,
		ROIWidth:       cfg.ROI.Width,
		ROIHeight:      cfg.ROI.Height,
		HistoryLength:  cfg.HistoryLength,
		MaxFPS:         cfg.MaxFPS,
		Calibration:    cfg.Calibration,
	}, opts...)
	if err != nil {
		if d.archive != nil {
			d.archive.Close()
		}
		cam.Finalize()
		return nil, err
	}
	d.counter = counter

	camWrap := httpcamera.NewHTTPCamera(cam, rec)
	lock := locker.New()
	locker.Inject(camWrap, lock)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Use(middleware.Recoverer)
	mount := func(prefix string, h http.Handler) {
		root.Mount(prefix, http.StripPrefix(prefix, h))
	}
	// the lock gates camera fiddling only; recording control, counting and
	// the archive stay reachable while locked
	mount("/camera", lock.Check(server.Mux(camWrap)))
	mount("/autowrite", server.Mux(imgrec.NewHTTPWrapper(rec)))
	mount("/counter", server.Mux(counting.NewHTTPCounter(counter)))
	if d.archive != nil {
		mount("/archive", server.Mux(store.NewHTTPArchive(d.archive)))
	}

	d.srv = &http.Server{Addr: cfg.Addr, Handler: root}
	return d, nil
}

// Run serves HTTP and drives the counting loop until the context is
// cancelled or SIGINT/SIGTERM arrives, then tears down in order: counting
// loop, HTTP server, camera, archive.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	counterDone := make(chan error, 1)
	go func() {
		counterDone <- d.counter.Run(ctx)
	}()
	srvDone := make(chan error, 1)
	go func() {
		d.log.WithField("addr", d.cfg.Addr).Info("now listening for requests")
		srvDone <- d.srv.ListenAndServe()
	}()

	var err error
	join := counterDone
	select {
	case <-ctx.Done():
	case err = <-counterDone:
		join = nil
	case err = <-srvDone:
	}
	cancel()
	// the counting loop may have a frame in flight; it must exit before the
	// camera is finalized
	if join != nil {
		if cerr := <-join; err == nil {
			err = cerr
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	d.shutdown()
	return err
}

func (d *Daemon) shutdown() {
	d.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.srv.Shutdown(sctx); err != nil {
		d.log.WithError(err).Warn("http server shutdown failed")
	}
	d.Close()
}

// Close finalizes the camera and closes the archive.  Run calls this on its
// way out; call it directly when the daemon was built but never Run.
func (d *Daemon) Close() {
	if err := d.cam.Finalize(); err != nil {
		d.log.WithError(err).Warn("camera teardown failed")
	}
	if d.archive != nil {
		if err := d.archive.Close(); err != nil {
			d.log.WithError(err).Warn("archive close failed")
		}
	}
}

// Counter exposes the counting pipeline, e.g. for foreground calibration
func (d *Daemon) Counter() *counting.Counter {
	return d.counter
}
