// Package livetable owns the state behind the live detections table: the
// detection buffer, the refresh cycle, pagination, the auto-refresh timer and
// the audio playback slot.
package livetable

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wasatchbitworks/birdworks-live/internal/conf"
	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
	"github.com/wasatchbitworks/birdworks-live/internal/preference"
)

const componentName = "livetable"

const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultReadyDelay      = 3 * time.Second
	DefaultPreferenceKey   = "birdworks_auto_refresh"
)

// Status messages.
const (
	MessageReady              = "Ready"
	MessageRefreshing         = "Refreshing..."
	MessageUpdated            = "Updated successfully"
	MessageAutoRefreshEnabled = "Auto-refresh enabled"
	MessageAutoRefreshOff     = "Auto-refresh disabled"
	messageErrorPrefix        = "Error: "
)

// State is the refresh state machine: Idle -> Refreshing -> (Success |
// Failure) -> Idle. Success reverts to Ready after the ready delay; Failure
// reverts to Idle after the same delay but keeps its error message.
type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
)

// Tone tells the page how to color the status text.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneActive  Tone = "active"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Status is what the status area shows.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	Tone    Tone   `json:"tone"`
}

// Fetcher returns today's detections.
type Fetcher interface {
	Today(ctx context.Context) ([]detection.Detection, error)
}

// Config configures a Controller. Zero values use the defaults.
type Config struct {
	RefreshInterval time.Duration
	ReadyDelay      time.Duration
	PageSize        int
	PreferenceKey   string
	Location        *time.Location
}

// ConfigFromSettings maps the live settings section onto a Config.
func ConfigFromSettings(s *conf.LiveSettings, loc *time.Location) Config {
	return Config{
		RefreshInterval: s.RefreshInterval,
		ReadyDelay:      s.ReadyDelay,
		PageSize:        s.PageSize,
		PreferenceKey:   s.PreferenceKey,
		Location:        loc,
	}
}

// Controller is created once per process and shared by every request.
// Start reads the auto-refresh preference; Stop ends the timer and waits for
// background refreshes.
type Controller struct {
	cfg     Config
	fetcher Fetcher
	prefs   preference.Store
	audio   *Audio
	log     logger.Logger
	metrics *metrics.LiveMetrics
	now     func() time.Time

	// refreshing admits one refresh at a time; others are dropped
	refreshing atomic.Bool

	mu          sync.Mutex
	buffer      []detection.Detection
	pager       Pager
	status      Status
	lastUpdated time.Time
	autoRefresh bool
	statusGen   uint64
	readyTimer  *time.Timer

	lifeMu     sync.Mutex
	baseCtx    context.Context
	cancelBase context.CancelFunc
	stopTimer  context.CancelFunc
	timerDone  chan struct{}
	stopped    bool
	wg         sync.WaitGroup
}

// Options carries the optional collaborators of a Controller.
type Options struct {
	Logger  logger.Logger
	Metrics *metrics.LiveMetrics
	Audio   *Audio
}

// New creates a controller in the Idle state with an empty buffer. When
// opts.Audio is nil a slot resolving URLs through resolver is created.
func New(cfg Config, fetcher Fetcher, prefs preference.Store, resolver URLResolver, opts Options) *Controller {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.ReadyDelay <= 0 {
		cfg.ReadyDelay = DefaultReadyDelay
	}
	if cfg.PreferenceKey == "" {
		cfg.PreferenceKey = DefaultPreferenceKey
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if prefs == nil {
		prefs = preference.NewMemoryStore()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	log = log.Module(componentName)

	audio := opts.Audio
	if audio == nil {
		audio = NewAudio(resolver, nil, log, opts.Metrics)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:        cfg,
		fetcher:    fetcher,
		prefs:      prefs,
		audio:      audio,
		log:        log,
		metrics:    opts.Metrics,
		now:        time.Now,
		pager:      NewPager(cfg.PageSize),
		status:     Status{State: StateIdle, Message: MessageReady, Tone: ToneNeutral},
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Audio returns the playback slot.
func (c *Controller) Audio() *Audio {
	return c.audio
}

// Start reads the persisted auto-refresh preference once and starts the
// timer when it is enabled.
func (c *Controller) Start(ctx context.Context) error {
	enabled, _, err := c.prefs.GetBool(ctx, c.cfg.PreferenceKey)
	if err != nil {
		c.log.Warn("failed to read auto-refresh preference, leaving it off", logger.Error(err))
		enabled = false
	}

	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.stopped {
		return errors.Newf("controller already stopped").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	c.mu.Lock()
	c.autoRefresh = enabled
	c.mu.Unlock()
	if enabled {
		c.startTimerLocked()
	}

	c.log.Info("live table started",
		logger.Bool("auto_refresh", enabled),
		logger.Duration("refresh_interval", c.cfg.RefreshInterval))
	return nil
}

// Stop stops the timer, discards in-flight refreshes and waits for
// background goroutines. It is safe to call more than once.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	if c.stopped {
		c.lifeMu.Unlock()
		return
	}
	c.stopped = true
	c.stopTimerLocked()
	c.cancelBase()
	c.lifeMu.Unlock()

	c.mu.Lock()
	if c.readyTimer != nil {
		c.readyTimer.Stop()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.log.Info("live table stopped")
}

// Seed replaces the buffer without touching the status, for data fetched
// before Start.
func (c *Controller) Seed(ds []detection.Detection, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceBufferLocked(ds, fetchedAt)
}

// Refresh fetches today's detections and replaces the buffer. It returns
// false without fetching when another refresh is in flight. On failure the
// previous buffer is kept and the error is shown in the status area.
func (c *Controller) Refresh(ctx context.Context) (admitted bool, err error) {
	if !c.tryBegin() {
		return false, nil
	}
	return true, c.runRefresh(ctx)
}

// TriggerRefresh starts a refresh in the background and reports whether it
// was admitted.
func (c *Controller) TriggerRefresh() bool {
	c.lifeMu.Lock()
	if c.stopped {
		c.lifeMu.Unlock()
		return false
	}
	if !c.tryBegin() {
		c.lifeMu.Unlock()
		return false
	}
	c.spawnRefreshLocked()
	c.lifeMu.Unlock()
	return true
}

// spawnRefreshLocked runs an admitted refresh on the base context, so only
// Stop can cancel it. The caller holds lifeMu or is the timer goroutine,
// either of which keeps Stop from reaching wg.Wait first.
func (c *Controller) spawnRefreshLocked() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.runRefresh(c.baseCtx)
	}()
}

func (c *Controller) tryBegin() bool {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.metrics.RecordRefresh(metrics.ResultDropped, 0)
		c.log.Debug("refresh already in flight, dropping request")
		return false
	}
	return true
}

func (c *Controller) runRefresh(ctx context.Context) error {
	defer c.refreshing.Store(false)

	ctx = logger.WithTraceID(ctx, uuid.NewString())
	log := c.log.WithContext(ctx)

	c.setStatus(Status{State: StateRefreshing, Message: MessageRefreshing, Tone: ToneActive})
	start := time.Now()

	ds, err := c.fetcher.Today(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			// stopped while in flight; nothing to show
			c.setStatus(Status{State: StateIdle, Message: MessageReady, Tone: ToneNeutral})
			log.Debug("refresh discarded after cancellation")
			return err
		}
		c.metrics.RecordRefresh(metrics.ResultFailure, elapsed)
		log.Warn("refresh failed, keeping previous detections",
			logger.Error(err),
			logger.Duration("elapsed", elapsed))
		c.mu.Lock()
		c.settleLocked(Status{State: StateFailure, Message: messageErrorPrefix + err.Error(), Tone: ToneError})
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.replaceBufferLocked(ds, c.now())
	c.settleLocked(Status{State: StateSuccess, Message: MessageUpdated, Tone: ToneSuccess})
	c.mu.Unlock()

	c.metrics.RecordRefresh(metrics.ResultSuccess, elapsed)
	log.Info("refresh completed",
		logger.Int("detections", len(ds)),
		logger.Duration("elapsed", elapsed))
	return nil
}

func (c *Controller) replaceBufferLocked(ds []detection.Detection, at time.Time) {
	buf := make([]detection.Detection, len(ds))
	copy(buf, ds)
	c.buffer = buf
	c.pager.Reset(len(buf))
	c.lastUpdated = at
	c.metrics.SetBufferDetections(len(buf))

	ids := make(map[detection.ID]struct{}, len(buf))
	for i := range buf {
		ids[buf[i].ID] = struct{}{}
	}
	c.audio.Retain(func(id detection.ID) bool {
		_, ok := ids[id]
		return ok
	})
}

// settleLocked shows the outcome of a refresh and schedules the revert to
// Idle.
func (c *Controller) settleLocked(s Status) {
	c.status = s
	c.statusGen++
	gen := c.statusGen
	if c.readyTimer != nil {
		c.readyTimer.Stop()
	}
	c.readyTimer = time.AfterFunc(c.cfg.ReadyDelay, func() { c.revertToIdle(gen) })
}

// revertToIdle ends a Success or Failure status unless a newer status
// replaced it. A failure keeps its message.
func (c *Controller) revertToIdle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusGen != gen {
		return
	}
	switch c.status.State {
	case StateSuccess:
		c.status = Status{State: StateIdle, Message: MessageReady, Tone: ToneNeutral}
	case StateFailure:
		c.status.State = StateIdle
	}
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusGen++
	c.status = s
}

// SetAutoRefresh toggles the timer and persists the flag. Any running timer
// is stopped first, so repeated calls leave exactly one timer or none; a
// refresh the timer already started still completes. The toggle applies even
// when persisting fails; that error is returned. A stopped controller
// changes nothing, not even the stored flag.
func (c *Controller) SetAutoRefresh(ctx context.Context, enabled bool) error {
	c.lifeMu.Lock()
	if c.stopped {
		c.lifeMu.Unlock()
		return errors.Newf("controller stopped").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	persistErr := c.prefs.SetBool(ctx, c.cfg.PreferenceKey, enabled)
	if persistErr != nil {
		c.log.Warn("failed to persist auto-refresh preference", logger.Error(persistErr))
	}

	c.stopTimerLocked()
	if enabled {
		c.startTimerLocked()
	}
	c.lifeMu.Unlock()

	message, tone := MessageAutoRefreshOff, ToneNeutral
	if enabled {
		message, tone = MessageAutoRefreshEnabled, ToneSuccess
	}
	c.mu.Lock()
	c.autoRefresh = enabled
	c.statusGen++
	c.status = Status{State: StateIdle, Message: message, Tone: tone}
	if c.refreshing.Load() {
		c.status.State = StateRefreshing
	}
	c.mu.Unlock()

	c.log.Info("auto-refresh toggled", logger.Bool("enabled", enabled))
	return persistErr
}

// AutoRefresh reports whether the timer is enabled.
func (c *Controller) AutoRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRefresh
}

func (c *Controller) startTimerLocked() {
	ctx, cancel := context.WithCancel(c.baseCtx)
	done := make(chan struct{})
	c.stopTimer = cancel
	c.timerDone = done
	interval := c.cfg.RefreshInterval

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// stopping the timer must not abort a refresh it started
				if c.tryBegin() {
					c.spawnRefreshLocked()
				}
			}
		}
	}()
}

func (c *Controller) stopTimerLocked() {
	if c.stopTimer == nil {
		return
	}
	c.stopTimer()
	<-c.timerDone
	c.stopTimer = nil
	c.timerDone = nil
}

// GoToPage moves the table to page n. Out of range pages are rejected.
func (c *Controller) GoToPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.GoToPage(n)
}

// TotalPages returns the page count of the current buffer.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.TotalPages()
}

// CurrentPage returns the page being shown.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.CurrentPage()
}

// Status returns the status area contents.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Detections returns a copy of the buffer.
func (c *Controller) Detections() []detection.Detection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]detection.Detection, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// Lookup finds a buffered detection by id.
func (c *Controller) Lookup(id detection.ID) (detection.Detection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.buffer {
		if c.buffer[i].ID == id {
			return c.buffer[i], true
		}
	}
	return detection.Detection{}, false
}

// View is everything the table partial needs.
type View struct {
	Status      Status `json:"status"`
	Page        int    `json:"page"`
	TotalPages  int    `json:"total_pages"`
	PageSize    int    `json:"page_size"`
	TotalItems  int    `json:"total_items"`
	Rows        []Row  `json:"rows"`
	AutoRefresh bool   `json:"auto_refresh"`
	Refreshing  bool   `json:"refreshing"`
	LastUpdated string `json:"last_updated"`
}

// Empty reports whether there are no rows to show.
func (v *View) Empty() bool {
	return len(v.Rows) == 0
}

// View renders the current page.
func (c *Controller) View() View {
	c.mu.Lock()
	start, end := c.pager.Bounds()
	visible := make([]detection.Detection, end-start)
	copy(visible, c.buffer[start:end])
	v := View{
		Status:      c.status,
		Page:        c.pager.CurrentPage(),
		TotalPages:  c.pager.TotalPages(),
		PageSize:    c.pager.PageSize(),
		TotalItems:  c.pager.TotalItems(),
		AutoRefresh: c.autoRefresh,
		Refreshing:  c.refreshing.Load(),
		LastUpdated: FormatLastUpdated(c.lastUpdated, c.cfg.Location),
	}
	c.mu.Unlock()

	v.Rows = make([]Row, 0, len(visible))
	for i := range visible {
		row := NewRow(&visible[i], c.cfg.Location)
		row.Audio = c.audio.State(row.ID)
		v.Rows = append(v.Rows, row)
	}
	return v
}

// PlayAudio starts playback of a buffered detection.
func (c *Controller) PlayAudio(ctx context.Context, id detection.ID) (AudioStatus, error) {
	d, ok := c.Lookup(id)
	if !ok {
		return AudioStatus{State: AudioIdle}, notFound(id)
	}
	return c.audio.Play(ctx, &d)
}

// PauseAudio pauses a row.
func (c *Controller) PauseAudio(id detection.ID) (AudioStatus, error) {
	if _, ok := c.Lookup(id); !ok {
		return AudioStatus{State: AudioIdle}, notFound(id)
	}
	return c.audio.Pause(id), nil
}

// AudioEnded marks a row's playback as finished.
func (c *Controller) AudioEnded(id detection.ID) (AudioStatus, error) {
	if _, ok := c.Lookup(id); !ok {
		return AudioStatus{State: AudioIdle}, notFound(id)
	}
	return c.audio.Ended(id), nil
}

// AudioFailed records a playback error reported by the page. The row's
// control stays disabled.
func (c *Controller) AudioFailed(id detection.ID, reason string) (AudioStatus, error) {
	if _, ok := c.Lookup(id); !ok {
		return AudioStatus{State: AudioIdle}, notFound(id)
	}
	return c.audio.Failed(id, reason), nil
}

func notFound(id detection.ID) error {
	return errors.Newf("detection %s is not in the live table", id).
		Component(componentName).
		Category(errors.CategoryNotFound).
		Context("detection_id", string(id)).
		Build()
}
