package birdsapi

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasatchbitworks/birdworks-live/internal/detection"
	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/httpclient"
)

const testBase = "https://cms.test/api/birds"

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	c, err := New(Config{BaseURL: testBase + "/", Transport: transport}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, transport
}

func TestLatestDecodesAndCaches(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"limit": "20"},
		httpmock.NewStringResponder(200, `{"detections":[
			{"id":7,"common_name":"American Robin","scientific_name":"Turdus migratorius","detected_at":"2024-05-01T14:03:00Z","confidence":0.93,"audio_url":"clips/7.wav"},
			{"id":"8","common_name":"","detected_at":"2024-05-01T14:05:00Z","confidence":0.5}
		]}`))

	first, err := c.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, detection.ID("7"), first[0].ID)
	assert.Equal(t, "American Robin", first[0].DisplayName())
	assert.True(t, first[0].HasAudio())
	assert.Equal(t, detection.UnknownSpecies, first[1].DisplayName())

	second, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, transport.GetTotalCallCount(), "second call must be served from cache")
}

func TestTodayBypassesCache(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"date": "today"},
		httpmock.NewStringResponder(200, `{"detections":[]}`))

	for range 3 {
		ds, err := c.Today(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, ds)
		assert.Empty(t, ds)
	}
	assert.Equal(t, 3, transport.GetTotalCallCount())
}

func TestDailyAcceptsBothKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []detection.DailyCount
	}{
		{"daily", `{"daily":[{"date":"2024-05-01","count":4}]}`, []detection.DailyCount{{Date: "2024-05-01", Count: 4}}},
		{"daily_counts", `{"daily_counts":[{"date":"2024-05-02","count":9}]}`, []detection.DailyCount{{Date: "2024-05-02", Count: 9}}},
		{"missing", `{}`, []detection.DailyCount{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, transport := newTestClient(t)
			transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/daily",
				map[string]string{"days": "30"}, httpmock.NewStringResponder(200, tt.body))

			got, err := c.Daily(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpeciesSanitizesMarkup(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponder(http.MethodGet, testBase+"/wasatch-bitworks/detections/species",
		httpmock.NewStringResponder(200, `{"species":[{"common_name":"<b>Steller's Jay</b><script>x()</script>","count":3}]}`))

	got, err := c.Species(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Steller's Jay", got[0].CommonName)
	assert.Equal(t, 3, got[0].Count)
}

func TestErrorCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		category  errors.ErrorCategory
		message   string
	}{
		{"non-2xx", httpmock.NewStringResponder(503, "down"), errors.CategoryNetwork, "HTTP 503: Service Unavailable"},
		{"transport", httpmock.NewErrorResponder(errors.NewStd("connection refused")), errors.CategoryNetwork, "connection refused"},
		{"malformed", httpmock.NewStringResponder(200, `{"detections":[`), errors.CategoryParse, "failed to parse response body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, transport := newTestClient(t)
			transport.RegisterNoResponder(tt.responder)

			_, err := c.Today(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseErrorKeepsDecodeError(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)
	transport.RegisterNoResponder(httpmock.NewStringResponder(200, `{"species": 7}`))

	_, err := c.Species(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryParse), "got %v", err)

	var decodeErr *httpclient.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.URL, "/detections/species")
}

func TestSnapshotFallsBackToEmpty(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"limit": "20"}, httpmock.NewStringResponder(200, `{"detections":[{"id":1}]}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"date": "today"}, httpmock.NewStringResponder(200, `{"detections":[]}`))
	transport.RegisterResponder(http.MethodGet, testBase+"/wasatch-bitworks/detections/species",
		httpmock.NewStringResponder(500, ""))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/daily",
		map[string]string{"days": "30"}, httpmock.NewStringResponder(200, `{"daily":[]}`))

	snap, err := c.Snapshot(context.Background())
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "HTTP 500: Internal Server Error", snap.Error)
	assert.Empty(t, snap.Latest)
	assert.NotNil(t, snap.Species)
	assert.Equal(t, testBase, snap.APIBase)
}

func TestSnapshotSuccess(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"limit": "20"}, httpmock.NewStringResponder(200, `{"detections":[{"id":1},{"id":2}]}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"date": "today"}, httpmock.NewStringResponder(200, `{"detections":[{"id":3}]}`))
	transport.RegisterResponder(http.MethodGet, testBase+"/wasatch-bitworks/detections/species",
		httpmock.NewStringResponder(200, `{"species":[{"common_name":"Robin","count":5}]}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/daily",
		map[string]string{"days": "30"}, httpmock.NewStringResponder(200, `{"daily_counts":[{"date":"2024-05-01","count":2}]}`))

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Latest, 2)
	assert.Len(t, snap.Today, 1)
	assert.Len(t, snap.Species, 1)
	assert.Len(t, snap.Daily, 1)
	assert.Equal(t, 4, transport.GetTotalCallCount())
}

func registerSnapshot(transport *httpmock.MockTransport, speciesStatus int) {
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"limit": "20"}, httpmock.NewStringResponder(200, `{"detections":[{"id":1}]}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/latest",
		map[string]string{"date": "today"}, httpmock.NewStringResponder(200, `{"detections":[{"id":3}]}`))
	transport.RegisterResponder(http.MethodGet, testBase+"/wasatch-bitworks/detections/species",
		httpmock.NewStringResponder(speciesStatus, `{"species":[]}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/daily",
		map[string]string{"days": "30"}, httpmock.NewStringResponder(200, `{"daily":[]}`))
}

func TestSnapshotSharedBetweenCallers(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)
	registerSnapshot(transport, 200)

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 5)
	for i := range snaps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Snapshot(context.Background())
			assert.NoError(t, err)
			snaps[i] = snap
		}()
	}
	wg.Wait()

	// one fan-out of four requests, however the calls interleave
	assert.Equal(t, 4, transport.GetTotalCallCount())
	for _, snap := range snaps {
		require.NotNil(t, snap)
		assert.Len(t, snap.Today, 1)
	}

	_, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, transport.GetTotalCallCount())

	c.InvalidateCache()
	_, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, transport.GetTotalCallCount())
}

func TestFailedSnapshotNotShared(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)
	registerSnapshot(transport, 500)

	_, err := c.Snapshot(context.Background())
	require.Error(t, err)
	species := "GET " + testBase + "/wasatch-bitworks/detections/species"
	assert.Equal(t, 1, transport.GetCallCountInfo()[species])

	_, err = c.Snapshot(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, transport.GetCallCountInfo()[species])
}

func TestSignedAudioURL(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/audio/signed-url",
		map[string]string{"path": "clips/7.wav"},
		httpmock.NewStringResponder(200, `{"url":"https://media.test/clips/7.wav?sig=abc"}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/audio/signed-url",
		map[string]string{"path": "clips/empty.wav"},
		httpmock.NewStringResponder(200, `{}`))
	transport.RegisterResponderWithQuery(http.MethodGet, testBase+"/wasatch-bitworks/audio/signed-url",
		map[string]string{"path": "clips/gone.wav"},
		httpmock.NewStringResponder(404, ""))

	got, err := c.SignedAudioURL(context.Background(), "clips/7.wav")
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/clips/7.wav?sig=abc", got)

	for _, path := range []string{"", "clips/empty.wav", "clips/gone.wav"} {
		_, err := c.SignedAudioURL(context.Background(), path)
		require.Error(t, err, path)
		assert.True(t, errors.IsCategory(err, errors.CategoryAudioUnavailable), path)
	}
}

func TestRequestsCarryUserAgent(t *testing.T) {
	t.Parallel()
	c, transport := newTestClient(t)

	var gotUA, gotAccept string
	transport.RegisterNoResponder(func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		gotAccept = req.Header.Get("Accept")
		return httpmock.NewStringResponse(200, `{"detections":[]}`), nil
	})

	_, err := c.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BirdWorks-Live/1.0", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestNewRejectsInvalidBase(t *testing.T) {
	t.Parallel()
	_, err := New(Config{BaseURL: "not a url"}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
