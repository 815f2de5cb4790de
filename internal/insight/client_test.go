package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/webpersona/internal/analysis"
)

func sampleSummary() analysis.Summary {
	r := analysis.Analyze([]analysis.VisitRecord{
		{URL: "https://github.com/private/repo?token=secret", Title: "Secret Repo", VisitCount: 5},
		{URL: "https://www.reddit.com/r/golang", VisitCount: 2},
	})
	return analysis.Summarize(r, 30)
}

func TestGenerate_SendsSanitizedPayload(t *testing.T) {
	var captured chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Three insights"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, Model: "gpt-4o-mini", MaxTokens: 400, Temperature: 0.7})
	text, err := c.Generate(context.Background(), sampleSummary(), "  sk-test ")
	require.NoError(t, err)
	assert.Equal(t, "Three insights", text)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 400, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "Only use the aggregated metrics provided")

	user := captured.Messages[1].Content
	assert.True(t, strings.HasPrefix(user, "Aggregated browsing summary: {"))
	assert.Contains(t, user, `"top_domains":[{"domain":"github.com","visits":5},{"domain":"reddit.com","visits":2}]`)
	assert.Contains(t, user, `"timeframe_days":30`)
	assert.Contains(t, user, `"personality":"introvert"`)
	assert.Contains(t, user, "three short insights")

	// Nothing but aggregates leaves the machine
	for _, leaked := range []string{"token=secret", "Secret Repo", "/r/golang", "https://"} {
		assert.NotContains(t, user, leaked)
	}
}

func TestGenerate_MissingKeyMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Generate(context.Background(), sampleSummary(), "   ")
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindMissingKey, ierr.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGenerate_StatusErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL}).Generate(context.Background(), sampleSummary(), "sk-test")
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindStatus, ierr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ierr.Status)
	assert.Contains(t, ierr.Message, "rate limited")
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Options{Endpoint: url}).Generate(context.Background(), sampleSummary(), "sk-test")
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindTransport, ierr.Kind)
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Generate(context.Background(), sampleSummary(), "sk-test")
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindTransport, ierr.Kind)
}

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message content", `{"choices":[{"message":{"content":"hello"}}]}`, "hello"},
		{"legacy text", `{"choices":[{"text":"legacy"}]}`, "legacy"},
		{"content wins over text", `{"choices":[{"message":{"content":"a"},"text":"b"}]}`, "a"},
		{"no choices", `{"id":"x"}`, `{"id":"x"}`},
		{"empty choices", `{"choices":[]}`, `{"choices":[]}`},
		{"blank content", `{"choices":[{"message":{"content":""}}]}`, `{"choices":[{"message":{"content":""}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractText_Errors(t *testing.T) {
	_, err := ExtractText([]byte("  "))
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindEmpty, ierr.Kind)

	_, err = ExtractText([]byte("<html>oops</html>"))
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindDecode, ierr.Kind)
}

func TestNewPayload(t *testing.T) {
	var s analysis.Summary
	p := NewPayload(s)
	assert.NotNil(t, p.TopDomains)
	assert.Nil(t, p.Personality)
	assert.Nil(t, p.TimeframeDays)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"top_domains": [],
		"stats": {"totalSites":0,"totalVisits":0,"socialScore":0,"techScore":0,"privacyScore":0},
		"personality": null,
		"privacy": null,
		"timeframe_days": null
	}`, string(data))
}

func TestNewPayload_CapsTopDomains(t *testing.T) {
	s := analysis.Summary{}
	for i := 0; i < 30; i++ {
		s.TopSites = append(s.TopSites, analysis.SummarySite{Domain: "d", Visits: int64(i)})
	}
	assert.Len(t, NewPayload(s).TopDomains, analysis.TopSitesLimit)
}

func TestResolveKey(t *testing.T) {
	k, err := ResolveKey(" inline ", "stored", "env")
	require.NoError(t, err)
	assert.Equal(t, "inline", k)

	k, err = ResolveKey("", "stored", "env")
	require.NoError(t, err)
	assert.Equal(t, "stored", k)

	k, err = ResolveKey("  ", "", "env")
	require.NoError(t, err)
	assert.Equal(t, "env", k)

	_, err = ResolveKey("", " ", "")
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, KindMissingKey, ierr.Kind)
}
