package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/"}, srv.Client(), zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return c
}

func TestNormalizeBaseURL(t *testing.T) {
	u, err := NormalizeBaseURL(" https://soc.example.com/api/?x=1#frag ")
	require.NoError(t, err)
	assert.Equal(t, "https://soc.example.com/api", u.String())

	for _, bad := range []string{"", "ftp://soc.example.com", "http://", "::nope"} {
		_, err := NormalizeBaseURL(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestAlertsDecodesArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/alerts", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":1,"severity":"high","rule_id":"R1","description":"brute force","entities":"alice","created_at":"2024-01-15T10:30:00"}]`)
	}))

	alerts, err := c.Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "R1", alerts[0].RuleID)
	assert.Equal(t, "HIGH", alerts[0].Severity.Label())
}

func TestLogsSendsLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `[]`)
	}))

	logs, err := c.Logs(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDatasetsUnwrapsList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/datasets", r.URL.Path)
		_, _ = io.WriteString(w, `{"datasets":[{"filename":"a.csv","name":"Demo A","event_count":50}]}`)
	}))

	datasets, err := c.Datasets(context.Background())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "a.csv", datasets[0].Filename)
	assert.Equal(t, 50, datasets[0].EventCount)
}

func TestIngestDatasetPostsEscapedFilename(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/demo/ingest-dataset/brute force.json", r.URL.Path)
		_, _ = io.WriteString(w, `{"message":"ok","ingested":50,"alerts_generated":3}`)
	}))

	result, err := c.IngestDataset(context.Background(), "brute force.json")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Ingested)
	assert.Equal(t, 3, result.AlertsGenerated)
}

func TestFetchJSONErrorUsesBodyText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Dataset 'x.json' not found."}`, http.StatusNotFound)
	}))

	_, err := c.IngestDataset(context.Background(), "x.json")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "Dataset 'x.json' not found.")
}

func TestFetchJSONErrorFallsBackToStatusText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Alerts(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Service Unavailable", err.Error())
}

func TestFetchJSONDecodeFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))

	_, err := c.Alerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode /alerts response")
}

func TestBaseURLPathPrefixIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/soc/alerts", r.URL.Path)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/soc/"}, srv.Client(), nil, nil)
	require.NoError(t, err)

	_, err = c.Alerts(context.Background())
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	withStatus := func(status string) *Client {
		return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			_, _ = io.WriteString(w, `{"status":"`+status+`"}`)
		}))
	}

	require.NoError(t, withStatus("ok").Health(context.Background()))
	assert.Error(t, withStatus("degraded").Health(context.Background()))
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/logs", endpointLabel("/logs?limit=100"))
	assert.Equal(t, "/demo/ingest-dataset/{filename}", endpointLabel("/demo/ingest-dataset/a.csv"))
}
