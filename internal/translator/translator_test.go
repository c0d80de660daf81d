package translator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapService 按字典翻译，字典里没有的文本返回错误
type mapService struct {
	dict  map[string]string
	calls []string
}

func (m *mapService) Translate(_ context.Context, text, _, _ string) (string, error) {
	m.calls = append(m.calls, text)
	if out, ok := m.dict[text]; ok {
		return out, nil
	}
	return "", errors.New("service unavailable")
}

func TestTranslateKeepsLineAlignmentOnPartialFailure(t *testing.T) {
	svc := &mapService{dict: map[string]string{"one": "ایک", "three": "تین"}}
	tr := New(svc, "en", "ur")

	res := tr.Translate(context.Background(), "one\ntwo\nthree")

	lines := strings.Split(res.Text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ایک", lines[0])
	assert.Equal(t, "two", lines[1])
	assert.Equal(t, "تین", lines[2])
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 1, res.Failed)
}

func TestTranslateSkipsBlankLines(t *testing.T) {
	svc := &mapService{dict: map[string]string{"a": "A", "b": "B"}}
	tr := New(svc, "en", "ur")

	res := tr.Translate(context.Background(), "a\n\n   \nb")

	assert.Equal(t, "A\n\n   \nB", res.Text)
	assert.Equal(t, []string{"a", "b"}, svc.calls)
	assert.Equal(t, 0, res.Failed)
}

func TestTranslateFlattensMultilineServiceOutput(t *testing.T) {
	svc := &mapService{dict: map[string]string{"x": "first\nsecond"}}
	res := New(svc, "en", "ur").Translate(context.Background(), "x\ny")

	assert.Equal(t, "first second\ny", res.Text)
	assert.Equal(t, 1, res.Failed)
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"short line."}, splitChunks("short line.", 50))

	got := splitChunks("One two. Three four. Five six.", 12)
	assert.Equal(t, []string{"One two.", "Three four.", "Five six."}, got)

	long := strings.Repeat("a", 25)
	got = splitChunks(long, 10)
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, got)
}

func TestGoogleServiceParsesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "gtx", q.Get("client"))
		assert.Equal(t, "en", q.Get("sl"))
		assert.Equal(t, "ur", q.Get("tl"))
		assert.Equal(t, "Hello. World.", q.Get("q"))
		_, _ = w.Write([]byte(`[[["ہیلو۔ ","Hello. ",null,null,1],["دنیا۔","World.",null,null,1]],null,"en"]`))
	}))
	defer srv.Close()

	g := NewGoogleService()
	g.BaseURL = srv.URL

	out, err := g.Translate(context.Background(), "Hello. World.", "en", "ur")
	require.NoError(t, err)
	assert.Equal(t, "ہیلو۔ دنیا۔", out)
}

func TestGoogleServiceErrorsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleService()
	g.BaseURL = srv.URL

	_, err := g.Translate(context.Background(), "Hello", "en", "ur")
	assert.Error(t, err)
}

func TestMyMemoryService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en|ur", r.URL.Query().Get("langpair"))
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":" سلام "},"responseStatus":200}`))
	}))
	defer srv.Close()

	m := NewMyMemoryService()
	m.BaseURL = srv.URL

	out, err := m.Translate(context.Background(), "hello", "en", "ur")
	require.NoError(t, err)
	assert.Equal(t, "سلام", out)
}

func TestChainFallsThrough(t *testing.T) {
	failing := &mapService{dict: map[string]string{}}
	working := &mapService{dict: map[string]string{"hi": "HI"}}

	out, err := Chain{failing, working}.Translate(context.Background(), "hi", "en", "ur")
	require.NoError(t, err)
	assert.Equal(t, "HI", out)

	_, err = Chain{failing}.Translate(context.Background(), "hi", "en", "ur")
	assert.Error(t, err)

	_, err = Chain{}.Translate(context.Background(), "hi", "en", "ur")
	assert.Error(t, err)
}

func TestCachedServiceHitsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := &mapService{dict: map[string]string{"hello": "سلام"}}
	cached := NewCachedService(svc, rdb)

	for i := 0; i < 3; i++ {
		out, err := cached.Translate(context.Background(), "hello", "en", "ur")
		require.NoError(t, err)
		assert.Equal(t, "سلام", out)
	}
	assert.Len(t, svc.calls, 1)
	assert.True(t, mr.Exists(cacheKey("hello", "en", "ur")))

	// 失败结果不写缓存
	_, err := cached.Translate(context.Background(), "missing", "en", "ur")
	assert.Error(t, err)
	assert.False(t, mr.Exists(cacheKey("missing", "en", "ur")))
}

func TestCachedServiceWithoutRedisPassesThrough(t *testing.T) {
	svc := &mapService{dict: map[string]string{"hello": "سلام"}}
	cached := NewCachedService(svc, nil)

	for i := 0; i < 2; i++ {
		_, err := cached.Translate(context.Background(), "hello", "en", "ur")
		require.NoError(t, err)
	}
	assert.Len(t, svc.calls, 2)
}
