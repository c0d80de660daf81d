package collector

import (
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Section 一个栏目：名称（Editorial / Opinion）与列表页地址
type Section struct {
	Name string
	URL  string
}

// Candidate 列表页扫描得到的待处理文章链接
type Candidate struct {
	URL     string
	Section string
}

// Scanner 翻页扫描栏目列表页，提取每个 article 块中的第一个链接
type Scanner struct {
	fetcher PageFetcher
}

func NewScanner(fetcher PageFetcher) *Scanner {
	return &Scanner{fetcher: fetcher}
}

// Scan 依次抓取第 1..maxPages 页；某页抓取失败则跳过，某页没有任何链接则视为到底，停止翻页。
// 返回去重后的链接，按首次出现顺序排列
func (s *Scanner) Scan(baseURL string, maxPages int) []string {
	if maxPages < 1 {
		maxPages = 1
	}

	seen := make(map[string]struct{})
	var links []string

	for page := 1; page <= maxPages; page++ {
		pageURL := PageURL(baseURL, page)
		p, err := s.fetcher.Fetch(pageURL)
		if err != nil {
			continue
		}
		doc, err := p.Document()
		if err != nil {
			log.Printf("parse listing %s: %v", pageURL, err)
			continue
		}

		pageLinks := articleLinks(doc, pageURL)
		if len(pageLinks) == 0 {
			break
		}
		for _, l := range pageLinks {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			links = append(links, l)
		}
	}

	return links
}

// Candidates 扫描栏目并附上栏目名
func (s *Scanner) Candidates(section Section, maxPages int) []Candidate {
	links := s.Scan(section.URL, maxPages)
	out := make([]Candidate, 0, len(links))
	for _, l := range links {
		out = append(out, Candidate{URL: l, Section: section.Name})
	}
	return out
}

// PageURL 第 1 页使用原地址，其余页追加 page 参数
func PageURL(baseURL string, page int) string {
	if page <= 1 {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "page=" + strconv.Itoa(page)
}

func articleLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)

	var links []string
	doc.Find("article").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Find("a").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		links = append(links, absoluteURL(base, href))
	})
	return links
}

func absoluteURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
