package collector

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleURL = "https://news.example.com/news/1"

func extractFrom(t *testing.T, html string) (*ExtractedArticle, error) {
	t.Helper()
	f := &fakeFetcher{pages: map[string]string{articleURL: html}}
	return NewExtractor(f, fixedClassifier()).Extract(articleURL)
}

func TestExtractFullArticle(t *testing.T) {
	a, err := extractFrom(t, `<html><body>
<h2 class="story__title">  Editorial:
  Water   crisis </h2>
<span class="timestamp--time">Published October 19, 202607:45am</span>
<div class="story__content">
  <p>First   line.</p>
  <p></p>
  <p>Second line.</p>
</div>
<p>Outside the story</p>
</body></html>`)
	require.NoError(t, err)

	assert.Equal(t, articleURL, a.URL)
	assert.Equal(t, "Editorial: Water crisis", a.Title)
	assert.Equal(t, "First line.\n\nSecond line.", a.Body)
	assert.Equal(t, "Published October 19, 202607:45am", a.PublishedText)
	assert.True(t, a.PublishedToday)
}

func TestExtractTitleFallbacks(t *testing.T) {
	a, err := extractFrom(t, `<h1>Heading one</h1><span class="timestamp">1 hour ago</span>`)
	require.NoError(t, err)
	assert.Equal(t, "Heading one", a.Title)
	assert.Equal(t, "", a.Body, "no content container")

	a, err = extractFrom(t, `<span class="timestamp">1 hour ago</span>`)
	require.NoError(t, err)
	assert.Equal(t, "No Title", a.Title)
}

func TestExtractWithoutTimestamp(t *testing.T) {
	_, err := extractFrom(t, `<h1>T</h1><div class="story__content"><p>x</p></div>`)
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestExtractRejectsOldArticles(t *testing.T) {
	_, err := extractFrom(t, `<h1>T</h1><span class="story__time">January 2, 2006</span>`)
	assert.ErrorIs(t, err, ErrNotRecent)

	_, err = extractFrom(t, `<h1>T</h1><span class="story__time">sometime</span>`)
	assert.ErrorIs(t, err, ErrNotRecent, "unparseable dates are not recent")
}

func TestExtractTimestampPriority(t *testing.T) {
	_, err := extractFrom(t, `<span class="timestamp">2 hours ago</span><span class="timestamp--time">January 2, 2006</span>`)
	assert.ErrorIs(t, err, ErrNotRecent)

	a, err := extractFrom(t, `<span class="timestamp">January 2, 2006</span><span class="story__time">3 minutes ago</span>`)
	require.NoError(t, err)
	assert.Equal(t, "3 minutes ago", a.PublishedText)
}

func TestExtractPropagatesFetchErrors(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	_, err := NewExtractor(f, fixedClassifier()).Extract(articleURL)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestExtractWithoutClassifierOnlyTrustsRelativeText(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		articleURL:        `<span class="timestamp">October 19, 2026</span>`,
		articleURL + "?r": `<span class="timestamp">20 minutes ago</span>`,
	}}
	e := NewExtractor(f, nil)

	_, err := e.Extract(articleURL)
	assert.ErrorIs(t, err, ErrNotRecent)

	_, err = e.Extract(articleURL + "?r")
	assert.NoError(t, err)
}
