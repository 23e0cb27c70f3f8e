package livetable

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
)

// AudioState is the visual state of a row's audio control.
type AudioState string

const (
	AudioIdle    AudioState = "idle"
	AudioLoading AudioState = "loading"
	AudioPlaying AudioState = "playing"
	AudioPaused  AudioState = "paused"
	AudioEnded   AudioState = "ended"
	AudioError   AudioState = "error"
)

// AudioStatus describes a row's control. Once Disabled is set it stays set.
type AudioStatus struct {
	State    AudioState `json:"state"`
	Disabled bool       `json:"disabled"`
	URL      string     `json:"url,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// URLResolver exchanges a recording path for a playable URL.
type URLResolver interface {
	SignedAudioURL(ctx context.Context, audioPath string) (string, error)
}

// MediaHandle drives the media element behind one row's control.
type MediaHandle interface {
	Load(url string)
	Play()
	Pause()
}

// HandleFactory creates the handle for a row the first time it plays.
type HandleFactory func(id detection.ID) MediaHandle

// nopHandle is used when the page script owns the media element and reports
// state changes back.
type nopHandle struct{}

func (nopHandle) Load(string) {}
func (nopHandle) Play()       {}
func (nopHandle) Pause()      {}

type audioRow struct {
	state    AudioState
	disabled bool
	url      string
	err      string
	handle   MediaHandle
}

func (r *audioRow) status() AudioStatus {
	return AudioStatus{State: r.state, Disabled: r.disabled, URL: r.url, Error: r.err}
}

// Audio owns the single playing slot shared by every row. Starting playback
// on one row pauses whichever row held the slot.
type Audio struct {
	resolver  URLResolver
	newHandle HandleFactory
	log       logger.Logger
	metrics   *metrics.LiveMetrics

	exchange singleflight.Group

	mu      sync.Mutex
	rows    map[detection.ID]*audioRow
	current detection.ID
}

// NewAudio creates the playback slot. factory, log and m may be nil.
func NewAudio(resolver URLResolver, factory HandleFactory, log logger.Logger, m *metrics.LiveMetrics) *Audio {
	if factory == nil {
		factory = func(detection.ID) MediaHandle { return nopHandle{} }
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Audio{
		resolver:  resolver,
		newHandle: factory,
		log:       log.Module("audio"),
		metrics:   m,
		rows:      make(map[detection.ID]*audioRow),
	}
}

// Current returns the row holding the slot, or "".
func (a *Audio) Current() detection.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// State returns the status of a row's control.
func (a *Audio) State(id detection.ID) AudioStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if row, ok := a.rows[id]; ok {
		return row.status()
	}
	return AudioStatus{State: AudioIdle}
}

// Play starts playback of d. The current holder of the slot is paused first,
// then the row enters loading while its signed URL is fetched. The URL is
// fetched once per row and reused. A failed exchange disables the row for good.
func (a *Audio) Play(ctx context.Context, d *detection.Detection) (AudioStatus, error) {
	a.mu.Lock()
	row := a.rowLocked(d.ID)
	if row.disabled {
		st := row.status()
		a.mu.Unlock()
		return st, audioUnavailable(errors.NewStd("audio control disabled"), d.ID)
	}
	if !d.HasAudio() {
		a.disableLocked(d.ID, row, "no recording")
		st := row.status()
		a.mu.Unlock()
		return st, audioUnavailable(errors.NewStd("detection has no recording"), d.ID)
	}

	a.preemptLocked(d.ID)
	a.current = d.ID
	row.state = AudioLoading
	if row.handle == nil {
		row.handle = a.newHandle(d.ID)
	}
	url := row.url
	a.mu.Unlock()

	if url == "" {
		v, err, _ := a.exchange.Do(string(d.ID), func() (any, error) {
			// a caller arriving just after an earlier exchange finished
			a.mu.Lock()
			cachedURL, disabled, reason := row.url, row.disabled, row.err
			a.mu.Unlock()
			if cachedURL != "" {
				return cachedURL, nil
			}
			if disabled {
				return nil, errors.NewStd(reason)
			}
			signed, err := a.resolver.SignedAudioURL(ctx, d.AudioURL)
			if err != nil {
				return nil, err
			}
			a.mu.Lock()
			row.url = signed
			a.mu.Unlock()
			return signed, nil
		})
		if err != nil {
			a.mu.Lock()
			a.disableLocked(d.ID, row, err.Error())
			st := row.status()
			a.mu.Unlock()
			a.metrics.RecordAudioEvent(metrics.AudioError)
			a.log.Warn("audio unavailable", logger.String("detection_id", string(d.ID)), logger.Error(err))
			return st, audioUnavailable(err, d.ID)
		}
		url, _ = v.(string)
		a.metrics.RecordAudioEvent(metrics.AudioResolved)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	row.url = url
	// paused or preempted while the URL was being fetched
	if a.current != d.ID || row.state != AudioLoading {
		return row.status(), nil
	}
	row.handle.Load(url)
	row.handle.Play()
	row.state = AudioPlaying
	a.metrics.RecordAudioEvent(metrics.AudioPlay)
	return row.status(), nil
}

// Pause pauses a loading or playing row and releases the slot.
func (a *Audio) Pause(id detection.ID) AudioStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return AudioStatus{State: AudioIdle}
	}
	if row.state == AudioPlaying || row.state == AudioLoading {
		if row.handle != nil {
			row.handle.Pause()
		}
		row.state = AudioPaused
		a.metrics.RecordAudioEvent(metrics.AudioPause)
	}
	if a.current == id {
		a.current = ""
	}
	return row.status()
}

// Ended marks a playing row as finished and releases the slot.
func (a *Audio) Ended(id detection.ID) AudioStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return AudioStatus{State: AudioIdle}
	}
	if row.state == AudioPlaying {
		row.state = AudioEnded
		a.metrics.RecordAudioEvent(metrics.AudioEnded)
	}
	if a.current == id {
		a.current = ""
	}
	return row.status()
}

// Failed records a playback error reported by the media element. The row is
// disabled for good.
func (a *Audio) Failed(id detection.ID, reason string) AudioStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	row := a.rowLocked(id)
	if row.handle != nil {
		row.handle.Pause()
	}
	a.disableLocked(id, row, reason)
	a.metrics.RecordAudioEvent(metrics.AudioError)
	return row.status()
}

// Retain forgets the state of rows for which keep returns false. The row
// holding the slot is always kept.
func (a *Audio) Retain(keep func(detection.ID) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range a.rows {
		if id != a.current && !keep(id) {
			delete(a.rows, id)
		}
	}
}

func (a *Audio) rowLocked(id detection.ID) *audioRow {
	row, ok := a.rows[id]
	if !ok {
		row = &audioRow{state: AudioIdle}
		a.rows[id] = row
	}
	return row
}

func (a *Audio) preemptLocked(next detection.ID) {
	if a.current == "" || a.current == next {
		return
	}
	if prev, ok := a.rows[a.current]; ok && (prev.state == AudioPlaying || prev.state == AudioLoading) {
		if prev.handle != nil {
			prev.handle.Pause()
		}
		prev.state = AudioPaused
		a.metrics.RecordAudioEvent(metrics.AudioPreempt)
	}
	a.current = ""
}

func (a *Audio) disableLocked(id detection.ID, row *audioRow, reason string) {
	row.state = AudioError
	row.disabled = true
	row.err = reason
	if a.current == id {
		a.current = ""
	}
}

func audioUnavailable(err error, id detection.ID) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryAudioUnavailable).
		Context("detection_id", string(id)).
		Build()
}
