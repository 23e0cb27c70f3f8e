// Package birdsapi fetches detections, species totals and daily counts from
// the BirdWorks CMS and exchanges recording paths for signed audio URLs.
package birdsapi

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/wasatchbitworks/birdworks-live/internal/conf"
	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/httpclient"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
)

const (
	componentName = "birdsapi"

	defaultSlug          = "wasatch-bitworks"
	defaultLatestLimit   = 20
	defaultDailyDays     = 30
	defaultLatestTTL     = time.Minute
	defaultAggregateTTL  = 5 * time.Minute
	defaultSnapshotTTL   = 10 * time.Second
	defaultAudioSignPath = "audio/signed-url"
	defaultUserAgent     = "BirdWorks-Live/1.0"
)

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL            string
	Slug               string
	Timeout            time.Duration
	LatestLimit        int
	DailyDays          int
	RateLimitPerSecond float64 // 0 disables limiting
	LatestCacheTTL     time.Duration
	AggregateCacheTTL  time.Duration
	// SnapshotCacheTTL lets the page and its chart requests share one
	// snapshot, since today's detections are otherwise never cached.
	SnapshotCacheTTL time.Duration
	AudioSignPath    string
	UserAgent        string

	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper
}

// ConfigFromSettings maps the api settings section onto a Config.
func ConfigFromSettings(s *conf.APISettings) Config {
	return Config{
		BaseURL:            s.BaseURL,
		Slug:               s.Slug,
		Timeout:            s.Timeout,
		LatestLimit:        s.LatestLimit,
		DailyDays:          s.DailyDays,
		RateLimitPerSecond: s.RateLimitPerSecond,
		LatestCacheTTL:     s.LatestCacheTTL,
		AggregateCacheTTL:  s.AggregateCacheTTL,
		SnapshotCacheTTL:   s.SnapshotCacheTTL,
		AudioSignPath:      s.AudioSignPath,
		UserAgent:          s.UserAgent,
	}
}

type endpointKey struct{}

// snapshotKey is the cache and singleflight key of the combined snapshot.
const snapshotKey = "snapshot"

// Client talks to the birds CMS. Safe for concurrent use.
type Client struct {
	cfg       Config
	http      *httpclient.Client
	cache     *cache.Cache
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	snapshots singleflight.Group
	log       logger.Logger
	metrics   *metrics.CMSMetrics
	now       func() time.Time
}

// New creates a CMS client. log and m may be nil.
func New(cfg Config, log logger.Logger, m *metrics.CMSMetrics) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = conf.DefaultAPIBase
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, errors.New(fmt.Errorf("invalid CMS base URL %q: %w", cfg.BaseURL, err)).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	applyDefaults(&cfg)

	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	limit := rate.Inf
	burst := 1
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
		// the snapshot fans out four requests at once
		burst = max(4, int(cfg.RateLimitPerSecond))
	}

	c := &Client{
		cfg: cfg,
		http: httpclient.New(&httpclient.Config{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
			Transport: cfg.Transport,
		}),
		cache:     cache.New(cfg.AggregateCacheTTL, 2*cfg.AggregateCacheTTL),
		limiter:   rate.NewLimiter(limit, burst),
		sanitizer: bluemonday.StrictPolicy(),
		log:       log.Module(componentName),
		metrics:   m,
		now:       time.Now,
	}
	c.http.SetAfterResponseHook(c.observe)

	c.log.Info("CMS client initialized",
		logger.String("api_base", cfg.BaseURL),
		logger.String("slug", cfg.Slug),
		logger.Float64("rate_limit_per_second", cfg.RateLimitPerSecond))

	return c, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Slug == "" {
		cfg.Slug = defaultSlug
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpclient.DefaultTimeout
	}
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = defaultLatestLimit
	}
	if cfg.DailyDays <= 0 {
		cfg.DailyDays = defaultDailyDays
	}
	if cfg.LatestCacheTTL <= 0 {
		cfg.LatestCacheTTL = defaultLatestTTL
	}
	if cfg.AggregateCacheTTL <= 0 {
		cfg.AggregateCacheTTL = defaultAggregateTTL
	}
	if cfg.SnapshotCacheTTL <= 0 {
		cfg.SnapshotCacheTTL = defaultSnapshotTTL
	}
	if cfg.AudioSignPath == "" {
		cfg.AudioSignPath = defaultAudioSignPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
}

// APIBase returns the CMS base URL in use.
func (c *Client) APIBase() string {
	return c.cfg.BaseURL
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}

// Latest returns the most recent detections, cached for LatestCacheTTL.
func (c *Client) Latest(ctx context.Context) ([]detection.Detection, error) {
	query := url.Values{"limit": {strconv.Itoa(c.cfg.LatestLimit)}}
	return cached(c, EndpointLatest, c.cfg.LatestCacheTTL, func() ([]detection.Detection, error) {
		var resp detectionsResponse
		if err := c.getJSON(ctx, EndpointLatest, "latest", query, &resp); err != nil {
			return nil, err
		}
		return c.cleanDetections(resp.Detections), nil
	})
}

// Today returns every detection of the current day in the operator zone.
// It always goes to the network; the live table owns its own buffer.
func (c *Client) Today(ctx context.Context) ([]detection.Detection, error) {
	var resp detectionsResponse
	if err := c.getJSON(ctx, EndpointToday, "latest", url.Values{"date": {"today"}}, &resp); err != nil {
		return nil, err
	}
	return c.cleanDetections(resp.Detections), nil
}

// Species returns per-species totals, cached for AggregateCacheTTL.
func (c *Client) Species(ctx context.Context) ([]detection.SpeciesCount, error) {
	return cached(c, EndpointSpecies, c.cfg.AggregateCacheTTL, func() ([]detection.SpeciesCount, error) {
		var resp speciesResponse
		if err := c.getJSON(ctx, EndpointSpecies, "detections/species", nil, &resp); err != nil {
			return nil, err
		}
		out := make([]detection.SpeciesCount, 0, len(resp.Species))
		for _, s := range resp.Species {
			s.CommonName = c.sanitize(s.CommonName)
			s.ScientificName = c.sanitize(s.ScientificName)
			out = append(out, s)
		}
		return out, nil
	})
}

// Daily returns daily counts in chronological order, cached for AggregateCacheTTL.
func (c *Client) Daily(ctx context.Context) ([]detection.DailyCount, error) {
	query := url.Values{"days": {strconv.Itoa(c.cfg.DailyDays)}}
	return cached(c, EndpointDaily, c.cfg.AggregateCacheTTL, func() ([]detection.DailyCount, error) {
		var resp dailyResponse
		if err := c.getJSON(ctx, EndpointDaily, "daily", query, &resp); err != nil {
			return nil, err
		}
		counts := resp.counts()
		if counts == nil {
			counts = []detection.DailyCount{}
		}
		return counts, nil
	})
}

// SignedAudioURL exchanges a recording path for a playable URL. Failures are
// CategoryAudioUnavailable.
func (c *Client) SignedAudioURL(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", errors.Newf("detection has no audio").
			Component(componentName).
			Category(errors.CategoryAudioUnavailable).
			Build()
	}

	var resp signedURLResponse
	err := c.getJSON(ctx, EndpointAudioSign, c.cfg.AudioSignPath, url.Values{"path": {audioPath}}, &resp)
	if err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryAudioUnavailable).
			Context("operation", "sign_audio_url").
			Build()
	}
	if resp.URL == "" {
		return "", errors.Newf("signed URL response carried no url").
			Component(componentName).
			Category(errors.CategoryAudioUnavailable).
			Context("operation", "sign_audio_url").
			Build()
	}
	return resp.URL, nil
}

// Snapshot fetches latest, today, species and daily in parallel. When any
// fetch fails it returns an empty snapshot carrying the error message along
// with the error itself. Successful snapshots are shared for
// SnapshotCacheTTL and concurrent callers share one fetch; callers must not
// modify the result.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	if v, found := c.cache.Get(snapshotKey); found {
		if snap, ok := v.(*Snapshot); ok {
			c.metrics.RecordCacheHit(snapshotKey)
			return snap, nil
		}
	}

	v, err, _ := c.snapshots.Do(snapshotKey, func() (any, error) {
		// one caller going away must not fail the others
		snap, err := c.fetchSnapshot(context.WithoutCancel(ctx))
		if err == nil {
			c.cache.Set(snapshotKey, snap, c.cfg.SnapshotCacheTTL)
		}
		return snap, err
	})
	return v.(*Snapshot), err
}

func (c *Client) fetchSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := emptySnapshot(c.cfg.BaseURL, c.now())

	g, gctx := errgroup.WithContext(ctx)
	var (
		latest, today []detection.Detection
		species       []detection.SpeciesCount
		daily         []detection.DailyCount
	)
	g.Go(func() (err error) { latest, err = c.Latest(gctx); return })
	g.Go(func() (err error) { today, err = c.Today(gctx); return })
	g.Go(func() (err error) { species, err = c.Species(gctx); return })
	g.Go(func() (err error) { daily, err = c.Daily(gctx); return })

	if err := g.Wait(); err != nil {
		c.log.Warn("CMS fetch failed, using empty fallback data", logger.Error(err))
		snap.Error = err.Error()
		return snap, err
	}

	snap.Latest, snap.Today, snap.Species, snap.Daily = latest, today, species, daily
	c.log.Debug("bird data fetched",
		logger.Int("recent_detections", len(latest)),
		logger.Int("today_detections", len(today)),
		logger.Int("species", len(species)),
		logger.Int("days", len(daily)))
	return snap, nil
}

// cached serves key from the response cache or calls fetch and stores its
// result for ttl.
func cached[T any](c *Client, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if v, found := c.cache.Get(key); found {
		if out, ok := v.(T); ok {
			c.metrics.RecordCacheHit(key)
			return out, nil
		}
	}
	out, err := fetch()
	if err != nil {
		return out, err
	}
	c.cache.Set(key, out, ttl)
	return out, nil
}

// InvalidateCache drops every cached response.
func (c *Client) InvalidateCache() {
	c.cache.Flush()
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("endpoint", endpoint).
			Build()
	}

	target := c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.Slug) + "/" + strings.TrimLeft(path, "/")
	ctx = context.WithValue(ctx, endpointKey{}, endpoint)

	start := time.Now()
	err := c.http.GetJSON(ctx, target, query, out)
	if err == nil {
		return nil
	}

	var (
		statusErr *httpclient.StatusError
		decodeErr *httpclient.DecodeError
	)
	switch {
	case errors.As(err, &statusErr):
		return errors.New(fmt.Errorf("HTTP %d: %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode))).
			Component(componentName).
			Category(errors.CategoryNetwork).
			NetworkContext(target, c.cfg.Timeout).
			Context("endpoint", endpoint).
			Context("status_code", statusErr.StatusCode).
			Build()
	case errors.As(err, &decodeErr):
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryParse).
			Context("endpoint", endpoint).
			Build()
	default:
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			NetworkContext(target, c.cfg.Timeout).
			Timing("fetch_"+endpoint, time.Since(start)).
			Context("endpoint", endpoint).
			Build()
	}
}

// observe is the httpclient after-response hook.
func (c *Client) observe(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	endpoint, _ := req.Context().Value(endpointKey{}).(string)
	status := metrics.StatusError
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.metrics.RecordRequest(endpoint, status, elapsed)
	c.log.Trace("CMS request",
		logger.String("endpoint", endpoint),
		logger.String("status", status),
		logger.Duration("elapsed", elapsed))
}

func (c *Client) cleanDetections(ds []detection.Detection) []detection.Detection {
	out := make([]detection.Detection, 0, len(ds))
	for _, d := range ds {
		d.CommonName = c.sanitize(d.CommonName)
		d.ScientificName = c.sanitize(d.ScientificName)
		out = append(out, d)
	}
	return out
}

// sanitize strips markup from CMS strings. The policy escapes entities, which
// the template layer escapes again, so they are decoded here.
func (c *Client) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(s)))
}
