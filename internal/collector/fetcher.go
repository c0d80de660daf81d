package collector

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const defaultRequestTimeout = 10 * time.Second

// Identity 一组浏览器请求头，用于伪装正常浏览器访问
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

var (
	// PrimaryIdentity 默认使用 Windows Chrome
	PrimaryIdentity = Identity{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.google.com/",
		},
	}
	// FallbackIdentity 被 403 拦截后改用 macOS Safari 重试一次
	FallbackIdentity = Identity{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		Headers: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.google.com/",
		},
	}
)

// Page 一次成功抓取的页面
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Document 将页面解析为 goquery 文档
func (p *Page) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
}

// StatusError 表示最终响应不是 200
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// PageFetcher 抽象页面抓取，便于在 Scanner / Extractor 中替换
type PageFetcher interface {
	Fetch(url string) (*Page, error)
}

// Fetcher 基于 colly 的单次抓取：主身份请求，遇到 403 用备用身份重试一次，不做其它重试
type Fetcher struct {
	Primary   Identity
	Fallback  Identity
	Timeout   time.Duration
	Transport http.RoundTripper
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Fetcher{
		Primary:  PrimaryIdentity,
		Fallback: FallbackIdentity,
		Timeout:  timeout,
	}
}

// Fetch 返回 200 的页面；非 200 与网络错误只记日志并以 error 返回，调用方按“无内容”处理
func (f *Fetcher) Fetch(url string) (*Page, error) {
	page, status, err := f.visit(url, f.Primary)
	if err != nil && status == http.StatusForbidden {
		page, status, err = f.visit(url, f.Fallback)
	}

	if err != nil {
		if status != 0 {
			log.Printf("skip %s, HTTP %d", url, status)
			return nil, &StatusError{URL: url, StatusCode: status}
		}
		log.Printf("error fetching %s: %v", url, err)
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if page.StatusCode != http.StatusOK {
		log.Printf("skip %s, HTTP %d", url, page.StatusCode)
		return nil, &StatusError{URL: url, StatusCode: page.StatusCode}
	}
	return page, nil
}

// visit 用指定身份访问一次。每次新建 collector，回调只写入本次调用的局部变量
func (f *Fetcher) visit(url string, id Identity) (*Page, int, error) {
	c := colly.NewCollector(
		colly.UserAgent(id.UserAgent),
		colly.AllowURLRevisit(),
	)
	if f.Transport != nil {
		c.WithTransport(f.Transport)
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c.SetRequestTimeout(timeout)

	var (
		page   *Page
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		for k, v := range id.Headers {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, status, err
	}
	if page == nil {
		return nil, status, fmt.Errorf("no response")
	}
	return page, status, nil
}
