package collector

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const noTitle = "No Title"

var (
	// ErrNoTimestamp 页面上找不到发布时间，无法判断是否为今天的文章
	ErrNoTimestamp = errors.New("no timestamp found")
	// ErrNotRecent 文章不是今天发布的
	ErrNotRecent = errors.New("article not published today")
)

// ExtractedArticle 从文章页提取出的内容；找不到正文容器时 Body 为空字符串
type ExtractedArticle struct {
	URL            string
	Title          string
	Body           string
	PublishedText  string
	PublishedToday bool
}

// Selectors 文章页结构选择器，按优先级排列
type Selectors struct {
	Title     []string
	Content   string
	Paragraph string
	Timestamp []string
}

// DefaultSelectors 对应 Dawn 文章页当前的 DOM 结构
var DefaultSelectors = Selectors{
	Title:     []string{"h2.story__title", "h1"},
	Content:   "div.story__content",
	Paragraph: "p",
	Timestamp: []string{"span.timestamp--time", "span.story__time", "span.timestamp"},
}

// Extractor 抓取文章页并提取标题、正文、发布时间，只放行今天发布的文章
type Extractor struct {
	fetcher    PageFetcher
	classifier *Classifier
	Selectors  Selectors
}

func NewExtractor(fetcher PageFetcher, classifier *Classifier) *Extractor {
	return &Extractor{
		fetcher:    fetcher,
		classifier: classifier,
		Selectors:  DefaultSelectors,
	}
}

// Extract 返回今天发布的文章；抓取失败、没有时间戳或不是今天发布时返回错误，调用方跳过即可
func (e *Extractor) Extract(url string) (*ExtractedArticle, error) {
	page, err := e.fetcher.Fetch(url)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		log.Printf("parse article %s: %v", url, err)
		return nil, fmt.Errorf("parse article %s: %w", url, err)
	}

	article, err := e.parse(doc, url)
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (e *Extractor) parse(doc *goquery.Document, url string) (*ExtractedArticle, error) {
	title := noTitle
	if sel := firstMatch(doc, e.Selectors.Title); sel != nil {
		if t := cleanText(sel.Text()); t != "" {
			title = t
		}
	}

	body := ""
	if container := doc.Find(e.Selectors.Content).First(); container.Length() > 0 {
		var paragraphs []string
		container.Find(e.Selectors.Paragraph).Each(func(_ int, p *goquery.Selection) {
			paragraphs = append(paragraphs, cleanText(p.Text()))
		})
		body = strings.Join(paragraphs, "\n")
	}

	stamp := firstMatch(doc, e.Selectors.Timestamp)
	if stamp == nil {
		log.Printf("warn: no timestamp found for %s", url)
		return nil, ErrNoTimestamp
	}
	raw := cleanText(stamp.Text())
	dateText := Normalize(raw)

	if !e.isRecent(dateText) {
		log.Printf("skip %s, published '%s' (not today)", url, dateText)
		return nil, ErrNotRecent
	}
	log.Printf("keep %s, published '%s'", url, dateText)

	return &ExtractedArticle{
		URL:            url,
		Title:          title,
		Body:           body,
		PublishedText:  raw,
		PublishedToday: true,
	}, nil
}

// isRecent 先看相对时间（含 minute / hour 直接算今天），否则交给 Classifier 解析日期
func (e *Extractor) isRecent(dateText string) bool {
	if strings.Contains(dateText, "minute") || strings.Contains(dateText, "hour") {
		return true
	}
	if e.classifier == nil {
		return false
	}
	return e.classifier.IsRecent(dateText)
}

func firstMatch(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if sel := doc.Find(s).First(); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// cleanText 合并连续空白
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
