package collector

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFallsBackOn403(t *testing.T) {
	var (
		mu  sync.Mutex
		uas []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		uas = append(uas, r.UserAgent())
		mu.Unlock()

		assert.Equal(t, "en-US,en;q=0.9", r.Header.Get("Accept-Language"))
		if strings.Contains(r.UserAgent(), "Windows NT") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("<html><body>fallback content</body></html>"))
	}))
	defer srv.Close()

	page, err := NewFetcher(5 * time.Second).Fetch(srv.URL + "/article")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "fallback content")

	require.Len(t, uas, 2)
	assert.Equal(t, PrimaryIdentity.UserAgent, uas[0])
	assert.Equal(t, FallbackIdentity.UserAgent, uas[1])
}

func TestFetchDoesNotRetryOtherStatuses(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	page, err := NewFetcher(5 * time.Second).Fetch(srv.URL)
	assert.Nil(t, page)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, 1, hits)
}

func TestFetchReturnsStatusErrorWhenFallbackAlsoBlocked(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewFetcher(5 * time.Second).Fetch(srv.URL)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, 2, hits, "exactly one fallback attempt")
}

func TestFetchNetworkErrorIsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	page, err := NewFetcher(time.Second).Fetch(addr)
	assert.Nil(t, page)
	assert.Error(t, err)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	page, err := NewFetcher(50 * time.Millisecond).Fetch(srv.URL)
	assert.Nil(t, page)
	assert.Error(t, err)
}

func TestPageDocument(t *testing.T) {
	p := &Page{Body: []byte(`<html><body><h1>Hello</h1></body></html>`)}
	doc, err := p.Document()
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Find("h1").Text())
}
