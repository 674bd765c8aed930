package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	personcounter "github.com/mzocca/go-personcounter"
	"github.com/mzocca/go-personcounter/camera"
	"github.com/mzocca/go-personcounter/counter"
	"github.com/mzocca/go-personcounter/postprocess"
	"github.com/mzocca/go-personcounter/preprocess"
	"github.com/mzocca/go-personcounter/render"
	"github.com/mzocca/go-personcounter/store"
	"github.com/mzocca/go-personcounter/stream"
	"github.com/mzocca/go-personcounter/tracker"
)

// fpsInterval is the number of detection frames between FPS recalculations
const fpsInterval = 10

// sampleBatchSize is the number of buffered count samples written to the
// store per transaction
const sampleBatchSize = 30

// trailLength is the number of center points kept per track when drawing
// movement trails
const trailLength = 90

// App wires the capture, detection, counting, rendering, persistence, and
// streaming pieces together
type App struct {
	cfg Config
	log *logrus.Logger

	cam    *camera.Camera
	pool   *personcounter.Pool
	yolo   *postprocess.YOLOv4
	filter postprocess.Postprocessor
	labels []string

	counts *counter.Counter
	meter  *counter.FPSMeter

	trk   *tracker.Tracker
	trail *tracker.Trail
	// trackTotal mirrors the tracker total for concurrent stats readers
	trackTotal atomic.Int64

	font    render.Font
	ttf     *render.TTF
	resizer *preprocess.Resizer
	fitted  gocv.Mat

	db      *store.Store
	sess    *store.Session
	samples []store.Sample

	srv *stream.Server

	window *gocv.Window

	// sem caps the in flight detection goroutines at the pool size
	sem chan struct{}
	wg  sync.WaitGroup
}

// newApp validates the configuration and acquires every resource the
// application needs.  Any failure here is fatal.
func newApp(cfg Config, log *logrus.Logger) (*App, error) {

	if cfg.Confidence < 0.1 || cfg.Confidence > 0.9 {
		clamped := clampFloat(cfg.Confidence, 0.1, 0.9)
		log.Warnf("confidence %.2f out of range, using %.2f", cfg.Confidence, clamped)
		cfg.Confidence = clamped
	}

	if cfg.Skip < 1 || cfg.Skip > 10 {
		clamped := clampInt(cfg.Skip, 1, 10)
		log.Warnf("skip %d out of range, using %d", cfg.Skip, clamped)
		cfg.Skip = clamped
	}

	if cfg.FPS < 1 {
		cfg.FPS = 15
	}

	if cfg.Trail {
		cfg.Track = true
	}

	if cfg.Pool < 1 {
		cfg.Pool = 1
	}

	if cfg.Pool > 1 && (cfg.Window || cfg.Addr == "") {
		log.Warn("detector pool needs headless stream mode, using a single detector")
		cfg.Pool = 1
	}

	if cfg.Pool > 1 && cfg.Track {
		log.Warn("tracking needs ordered frames, disabling with a detector pool")
		cfg.Track = false
		cfg.Trail = false
	}

	app := &App{
		cfg:  cfg,
		log:  log,
		font: render.DefaultFont(),
		sem:  make(chan struct{}, cfg.Pool),
	}

	if err := app.setup(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setup opens the model, camera, and optional store, server, and window in
// dependency order
func (a *App) setup() error {

	cfg := a.cfg

	var err error

	if cfg.Labels == "" {
		a.labels = personcounter.COCOLabels()
	} else {

		a.labels, err = personcounter.LoadLabels(cfg.Labels)

		if err != nil {
			return fmt.Errorf("loading labels: %w", err)
		}

		if len(a.labels) <= personcounter.PersonClassID {
			return fmt.Errorf("label file %s has no entry for the person class", cfg.Labels)
		}
	}

	a.pool, err = personcounter.NewPool(cfg.Pool, cfg.Weights, cfg.ModelCfg)

	if err != nil {
		return err
	}

	a.pool.SetInputSize(cfg.Size, cfg.Size)

	if err = a.pool.SetBackendAndTarget(cfg.Backend, cfg.Target); err != nil {
		return err
	}

	params := postprocess.YOLOv4TinyCOCOParams()
	params.BoxThreshold = float32(cfg.Confidence)
	params.NMSThreshold = float32(cfg.NMS)

	a.yolo = postprocess.NewYOLOv4(params)
	a.filter = postprocess.NewClassFilter(personcounter.PersonClassID)

	a.counts = counter.New(cfg.Smooth)
	a.meter = counter.NewFPSMeter(fpsInterval)

	if cfg.Track {
		a.trk = tracker.New(tracker.DefaultConfig())
	}

	if cfg.Trail {
		a.trail = tracker.NewTrail(trailLength)
	}

	if cfg.Font != "" {

		a.ttf, err = render.NewTTF(cfg.Font, render.TTFFontSize)

		if err != nil {
			a.log.Warnf("falling back to the builtin font: %v", err)
			a.ttf = nil
		}
	}

	a.cam, err = camera.Open(cfg.Source, camera.Config{
		Width:  cfg.Width,
		Height: cfg.Height,
		FPS:    cfg.FPS,
	})

	if err != nil {
		return err
	}

	if cfg.DB != "" {

		a.db, err = store.Open(cfg.DB)

		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}

		a.sess, err = a.db.BeginSession(cfg.Source)

		if err != nil {
			return fmt.Errorf("beginning session: %w", err)
		}

		a.log.Infof("recording session %s", a.sess.ID)
	}

	if cfg.Addr != "" {

		a.srv = stream.New(cfg.Addr, cfg.FPS, a.stats, a.db, a.log)

		go func() {
			if err := a.srv.Start(); err != nil {
				a.log.Errorf("http server failed: %v", err)
			}
		}()

		a.log.Infof("streaming on http://%s", cfg.Addr)
	}

	if cfg.Window {
		a.window = gocv.NewWindow("Person Counter")
	}

	a.log.Infof("model %s, backend %s, target %s, input %dx%d",
		cfg.Weights, cfg.Backend, cfg.Target, cfg.Size, cfg.Size)

	return nil
}

// stats returns a snapshot of the running counts.  With tracking enabled
// the total is the number of distinct confirmed tracks.
func (a *App) stats() counter.Stats {

	st := a.counts.Stats()

	if a.trk != nil {
		st.Total = int(a.trackTotal.Load())
	}

	return st
}

// Run drives the capture loop until the window is closed, the source ends,
// or an interrupt arrives
func (a *App) Run() error {

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	frame := gocv.NewMat()
	defer frame.Close()

	// pace headless runs so video files play at capture speed
	var pace *time.Ticker

	if !a.cfg.Window {
		pace = time.NewTicker(time.Duration(float64(time.Second) / float64(a.cfg.FPS)))
		defer pace.Stop()
	}

	a.log.Infof("counting persons on source %s, detecting every %d frame(s)",
		a.cfg.Source, a.cfg.Skip)

	frameNum := 0

loop:
	for {

		select {
		case s := <-sig:
			a.log.Infof("received %s, shutting down", s)
			break loop
		default:
		}

		if pace != nil {
			<-pace.C
		}

		if err := a.cam.Read(&frame); err != nil {
			a.log.Infof("capture ended: %v", err)
			break loop
		}

		if frame.Empty() {
			continue
		}

		frameNum++

		detect := frameNum%a.cfg.Skip == 0

		if detect && a.async() {

			a.dispatch(frame)

			if a.db != nil {
				a.sample(a.stats())
			}

			continue
		}

		if detect {
			a.processFrame(&frame)
		}

		// overlay on every frame so skipped frames still show the count
		st := a.stats()
		a.overlay(&frame, st)

		if a.db != nil && detect {
			a.sample(st)
		}

		disp := a.display(&frame)

		if a.srv != nil {
			a.publish(*disp)
		}

		if a.window != nil {

			a.window.IMShow(*disp)

			// WaitKey pumps the window events, so the visibility
			// property is only current after it returns
			key := a.window.WaitKey(1)

			switch windowInput(key, a.window.GetWindowProperty(gocv.WindowPropertyVisible)) {
			case windowQuit:
				a.log.Info("exit requested")
				break loop
			case windowReset:
				a.reset()
			}
		}
	}

	a.wg.Wait()

	st := a.stats()
	a.log.Infof("done: %d persons passed, %d detection frames processed",
		st.Total, st.Frames)

	return nil
}

// async reports whether detection frames are processed by pool workers in
// parallel
func (a *App) async() bool {
	return a.cfg.Pool > 1
}

// processFrame runs detection on the frame, updates the counts, and draws
// the results
func (a *App) processFrame(frame *gocv.Mat) {

	det := a.pool.Get()
	outputs, err := det.Forward(*frame)
	a.pool.Return(det)

	if err != nil {
		a.log.Errorf("forward pass failed: %v", err)
		return
	}

	persons := a.filter(a.yolo.DetectObjects(outputs))

	if err := outputs.Free(); err != nil {
		a.log.Errorf("freeing outputs: %v", err)
	}

	a.counts.AddFrame()
	current, newPersons := a.counts.Update(len(persons))

	if newPersons > 0 {
		a.log.Debugf("%d new person(s), %d in frame", newPersons, current)
	}

	if a.meter.Tick() {
		a.counts.SetFPS(a.meter.FPS())
	}

	if a.trk == nil {
		render.DetectionBoxes(frame, persons, a.labels, a.font, 2)
		return
	}

	tracks := a.trk.Update(postprocess.DetectionsToObjects(persons))
	a.trackTotal.Store(int64(a.trk.TotalCount()))

	if a.trail != nil {

		for _, track := range tracks {
			a.trail.Add(track)
		}

		render.Trail(frame, tracks, a.trail, render.DefaultTrailStyle())
	}

	render.TrackerBoxes(frame, tracks, a.labels, a.font, 2)
}

// dispatch hands a copy of the frame to a pool worker, dropping the frame
// when all workers are busy
func (a *App) dispatch(frame gocv.Mat) {

	select {
	case a.sem <- struct{}{}:
	default:
		// all detectors busy
		return
	}

	img := frame.Clone()
	a.wg.Add(1)

	go a.processAsync(img)
}

// processAsync detects, counts, annotates, and publishes one frame from a
// pool worker
func (a *App) processAsync(img gocv.Mat) {

	defer func() {
		img.Close()
		<-a.sem
		a.wg.Done()
	}()

	det := a.pool.Get()
	outputs, err := det.Forward(img)
	a.pool.Return(det)

	if err != nil {
		a.log.Errorf("forward pass failed: %v", err)
		return
	}

	persons := a.filter(a.yolo.DetectObjects(outputs))

	if err := outputs.Free(); err != nil {
		a.log.Errorf("freeing outputs: %v", err)
	}

	a.counts.AddFrame()
	a.counts.Update(len(persons))

	if a.meter.Tick() {
		a.counts.SetFPS(a.meter.FPS())
	}

	render.DetectionBoxes(&img, persons, a.labels, a.font, 2)
	a.overlay(&img, a.stats())

	if a.srv != nil {
		a.publish(img)
	}
}

// overlay draws the count statistics over the frame
func (a *App) overlay(frame *gocv.Mat, st counter.Stats) {

	if a.ttf != nil {

		if err := render.CountOverlayTTF(frame, st, a.ttf); err != nil {
			a.log.Debugf("ttf overlay failed: %v", err)
		}

		return
	}

	render.CountOverlay(frame, st)
}

// display letterbox fits the frame to the configured output size, returning
// the Mat to show
func (a *App) display(frame *gocv.Mat) *gocv.Mat {

	if a.cfg.Display == "" {
		return frame
	}

	if a.resizer == nil {

		w, h, err := parseDisplaySize(a.cfg.Display)

		if err != nil {
			a.log.Warnf("ignoring display size: %v", err)
			a.cfg.Display = ""
			return frame
		}

		a.resizer = preprocess.NewResizer(frame.Cols(), frame.Rows(), w, h)
		a.fitted = gocv.NewMat()
	}

	a.resizer.LetterBoxResize(*frame, &a.fitted, render.Black)

	return &a.fitted
}

// publish encodes the frame as JPEG and hands it to the stream server
func (a *App) publish(img gocv.Mat) {

	buf, err := gocv.IMEncode(".jpg", img)

	if err != nil {
		a.log.Errorf("jpeg encode failed: %v", err)
		return
	}

	a.srv.SetFrame(buf.GetBytes())
	buf.Close()
}

// sample buffers a count snapshot, flushing a full batch to the store
func (a *App) sample(st counter.Stats) {

	a.samples = append(a.samples, store.Sample{
		RecordedAt: time.Now(),
		Current:    st.Current,
		Total:      st.Total,
		FPS:        st.FPS,
	})

	if len(a.samples) >= sampleBatchSize {
		a.flushSamples()
	}
}

// flushSamples writes the buffered count samples to the store
func (a *App) flushSamples() {

	if a.db == nil || a.sess == nil || len(a.samples) == 0 {
		return
	}

	if err := a.db.InsertSamples(a.sess.ID, a.samples); err != nil {
		a.log.Errorf("writing count samples: %v", err)
	}

	a.samples = a.samples[:0]
}

// reset zeroes the counters and forgets all tracks
func (a *App) reset() {

	a.counts.Reset()

	if a.trk != nil {
		a.trk.Reset()
		a.trackTotal.Store(0)
	}

	if a.trail != nil {
		a.trail.Reset()
	}

	a.log.Info("counters reset")
}

// Close releases every acquired resource.  It is safe to call on a
// partially constructed App.
func (a *App) Close() {

	if a.window != nil {
		a.window.Close()
	}

	if a.srv != nil {

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		if err := a.srv.Shutdown(ctx); err != nil {
			a.log.Errorf("http server shutdown: %v", err)
		}

		cancel()
	}

	if a.db != nil {

		a.flushSamples()

		if a.sess != nil {
			if err := a.db.EndSession(a.sess, a.stats()); err != nil {
				a.log.Errorf("finalizing session: %v", err)
			}
		}

		a.db.Close()
	}

	if a.ttf != nil {
		a.ttf.Close()
	}

	if a.resizer != nil {
		a.resizer.Close()
		a.fitted.Close()
	}

	if a.cam != nil {
		a.cam.Close()
	}

	if a.pool != nil {
		a.pool.Close()
	}
}

// windowCommand is the loop action requested through the display window
type windowCommand int

const (
	windowNone windowCommand = iota
	windowQuit
	windowReset
)

// windowInput maps a polled key code and the window visibility property to
// a loop action.  Visibility drops below 1 once the user closes the window
// from the window manager.
func windowInput(key int, visible float64) windowCommand {

	if visible < 1 {
		return windowQuit
	}

	switch key {
	case 'q', 27:
		return windowQuit
	case 'r':
		return windowReset
	}

	return windowNone
}

// parseDisplaySize parses a WxH size such as 640x480
func parseDisplaySize(s string) (int, int, error) {

	parts := strings.Split(strings.ToLower(s), "x")

	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("display size %q is not in WxH form", s)
	}

	w, err := strconv.Atoi(parts[0])

	if err != nil || w < 1 {
		return 0, 0, fmt.Errorf("display width %q is not a positive number", parts[0])
	}

	h, err := strconv.Atoi(parts[1])

	if err != nil || h < 1 {
		return 0, 0, fmt.Errorf("display height %q is not a positive number", parts[1])
	}

	return w, h, nil
}

func clampFloat(v, lo, hi float64) float64 {

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func clampInt(v, lo, hi int) int {

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
