package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/birdsapi"
	"github.com/wasatchbitworks/birdworks-live/internal/dashboard"
	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/livetable"
	"github.com/wasatchbitworks/birdworks-live/internal/observability"
	"github.com/wasatchbitworks/birdworks-live/internal/timebucket"
)

type staticSource struct {
	snap *birdsapi.Snapshot
	err  error
}

func (s staticSource) Snapshot(context.Context) (*birdsapi.Snapshot, error) {
	return s.snap, s.err
}

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	ds    []detection.Detection
}

func (f *stubFetcher) Today(context.Context) ([]detection.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.ds, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubResolver struct{}

func (stubResolver) SignedAudioURL(_ context.Context, path string) (string, error) {
	return "https://cdn.example.com/" + path + "?sig=abc", nil
}

func sampleSnapshot() *birdsapi.Snapshot {
	return &birdsapi.Snapshot{
		Today: []detection.Detection{
			{ID: "1", CommonName: "American Robin", DetectedAt: "2024-05-01T14:03:00Z", Confidence: 0.95},
		},
		Species: []detection.SpeciesCount{{CommonName: "American Robin", Count: 12}},
		Daily:   []detection.DailyCount{{Date: "2024-05-01", Count: 12}},
	}
}

func makeDetections(n int) []detection.Detection {
	out := make([]detection.Detection, n)
	for i := range out {
		id := strconv.Itoa(i + 1)
		out[i] = detection.Detection{
			ID:         detection.ID(id),
			CommonName: "Bird " + id,
			DetectedAt: "2024-05-01T15:00:00Z",
			Confidence: 0.95,
			AudioURL:   "clips/" + id + ".wav",
		}
	}
	return out
}

type testServer struct {
	*Server
	live    *livetable.Controller
	fetcher *stubFetcher
}

func newTestServer(t *testing.T, source SnapshotSource) *testServer {
	t.Helper()

	fetcher := &stubFetcher{}
	live := livetable.New(livetable.Config{PageSize: 20, Location: time.UTC, ReadyDelay: 10 * time.Millisecond},
		fetcher, nil, stubResolver{}, livetable.Options{})
	t.Cleanup(live.Stop)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	charts := dashboard.New(dashboard.Options{Zone: timebucket.FromLocation(time.UTC), Metrics: m.Charts})
	s, err := New(Config{SiteName: "Test Station"}, Deps{
		Source:  source,
		Live:    live,
		Charts:  charts,
		Metrics: m,
	})
	require.NoError(t, err)
	return &testServer{Server: s, live: live, fetcher: fetcher}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Echo.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresDeps(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}, Deps{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestIndexPage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})

	rec := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<title>Test Station</title>")
	assert.Contains(t, body, `data-chart="daily"`)
	assert.Contains(t, body, `data-chart="hourly"`)
	assert.Contains(t, body, "American Robin")
	assert.Contains(t, body, livetable.EmptyMessage)
	assert.NotContains(t, body, "Detection data is unavailable")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestIndexPageRendersWhenDataUnavailable(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{err: errors.NewStd("HTTP 503: Service Unavailable")})

	rec := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Detection data is unavailable: HTTP 503: Service Unavailable")
	assert.NotContains(t, rec.Body.String(), "<svg")
}

func TestWritePageStatic(t *testing.T) {
	t.Parallel()
	live := livetable.New(livetable.Config{PageSize: 20, Location: time.UTC}, &stubFetcher{}, nil, stubResolver{}, livetable.Options{})
	t.Cleanup(live.Stop)
	live.Seed(makeDetections(2), time.Date(2024, 5, 1, 15, 5, 0, 0, time.UTC))
	view := live.View()

	charts := dashboard.New(dashboard.Options{Zone: timebucket.FromLocation(time.UTC)})
	page := BuildPage("Static Station", sampleSnapshot(), charts, &view, nil)
	page.Static = true

	var buf strings.Builder
	require.NoError(t, WritePage(&buf, page, nil))
	body := buf.String()

	assert.Contains(t, body, "<title>Static Station</title>")
	assert.Contains(t, body, `data-chart="daily"`)
	assert.Contains(t, body, "Bird 2")
	assert.NotContains(t, body, "<script>")
}

func TestChartEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})

	tests := []struct {
		target string
		code   int
	}{
		{"/charts/daily", http.StatusOK},
		{"/charts/species.svg", http.StatusOK},
		{"/charts/weekday", http.StatusOK},
		{"/charts/radar", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, tt.target, "")
		assert.Equal(t, tt.code, rec.Code, tt.target)
		if tt.code == http.StatusOK {
			assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"), tt.target)
		}
	}

	empty := newTestServer(t, staticSource{snap: &birdsapi.Snapshot{}})
	rec := empty.do(t, http.MethodGet, "/charts/hourly", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTablePartial(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})
	ts.live.Seed(makeDetections(3), time.Date(2024, 5, 1, 15, 5, 0, 0, time.UTC))

	rec := ts.do(t, http.MethodGet, "/live/table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `data-record="{&#34;id&#34;:1,`)
	assert.Contains(t, body, "badge-high")
	assert.Contains(t, body, "95% &#10003;")
	assert.Contains(t, body, "May 1, 2024, 3:00 PM")
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, "Last updated: May 1, 2024, 3:05 PM UTC")
	assert.NotContains(t, body, livetable.EmptyMessage)
}

func TestLiveViewAndPaging(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})
	ts.live.Seed(makeDetections(45), time.Now())

	rec := ts.do(t, http.MethodPost, "/api/v1/live/page/3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view livetable.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Page)
	assert.Len(t, view.Rows, 5)

	rec = ts.do(t, http.MethodPost, "/api/v1/live/page/4", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Code)
	assert.NotEmpty(t, apiErr.CorrelationID)

	rec = ts.do(t, http.MethodPost, "/api/v1/live/page/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Page, "rejected page requests leave the page alone")
	assert.Equal(t, 45, view.TotalItems)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})
	ts.fetcher.ds = makeDetections(2)

	rec := ts.do(t, http.MethodPost, "/api/v1/live/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"admitted":true}`, rec.Body.String())

	assert.Eventually(t, func() bool { return len(ts.live.Detections()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ts.fetcher.callCount())
}

func TestAutoRefreshEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})

	rec := ts.do(t, http.MethodPut, "/api/v1/live/autorefresh", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp autoRefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Enabled)
	assert.True(t, resp.Persisted)
	assert.Equal(t, livetable.MessageAutoRefreshEnabled, resp.Status.Message)
	assert.True(t, ts.live.AutoRefresh())

	rec = ts.do(t, http.MethodPut, "/api/v1/live/autorefresh", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.live.AutoRefresh())

	rec = ts.do(t, http.MethodPut, "/api/v1/live/autorefresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPut, "/api/v1/live/autorefresh", `{"enabled":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudioEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})
	ds := makeDetections(2)
	ds[1].AudioURL = ""
	ts.live.Seed(ds, time.Now())

	rec := ts.do(t, http.MethodPost, "/api/v1/audio/1/play", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st livetable.AudioStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, livetable.AudioPlaying, st.State)
	assert.Equal(t, "https://cdn.example.com/clips/1.wav?sig=abc", st.URL)

	rec = ts.do(t, http.MethodPost, "/api/v1/audio/1/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, livetable.AudioPaused, st.State)

	// no recording: the control comes back disabled, not as an HTTP error
	rec = ts.do(t, http.MethodPost, "/api/v1/audio/2/play", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Disabled)
	assert.Equal(t, livetable.AudioError, st.State)

	rec = ts.do(t, http.MethodPost, "/api/v1/audio/1/error", `{"reason":"decode error"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Disabled)
	assert.Equal(t, "decode error", st.Error)

	for _, action := range []string{"play", "pause", "ended", "error"} {
		rec = ts.do(t, http.MethodPost, "/api/v1/audio/99/"+action, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, action)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, staticSource{snap: sampleSnapshot()})

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/", "")
	rec = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `birdworks_chart_renders_total{chart="daily",result="rendered"} 1`)
}
