package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/LJTian/EditorialHub/internal/collector"
)

// TranslatedArticle 抽取结果 + 译文；TranslatedBody 与 Body 行数一致，翻译失败的行保留原文
type TranslatedArticle struct {
	collector.ExtractedArticle
	TranslatedTitle   string
	TranslatedBody    string
	UntranslatedLines int
}

// ProcessedArticle 是写入存储层前的统一结构
type ProcessedArticle struct {
	ID              string
	Section         string
	URL             string
	OriginalTitle   string
	TranslatedTitle string
	OriginalBody    string
	TranslatedBody  string
	SourceLocale    string
	TargetLocale    string
	Meta            map[string]any
}

// SimpleProcessor 做基础的数据清洗与 ID 生成
type SimpleProcessor struct {
	SourceLocale string
	TargetLocale string
}

func NewSimpleProcessor(source, target string) *SimpleProcessor {
	return &SimpleProcessor{SourceLocale: source, TargetLocale: target}
}

func (p *SimpleProcessor) Process(section string, a TranslatedArticle) ProcessedArticle {
	title := toValidUTF8(strings.TrimSpace(a.Title))
	translatedTitle := toValidUTF8(strings.TrimSpace(a.TranslatedTitle))
	if translatedTitle == "" {
		translatedTitle = title
	}

	return ProcessedArticle{
		ID:              hashURL(a.URL),
		Section:         section,
		URL:             a.URL,
		OriginalTitle:   title,
		TranslatedTitle: translatedTitle,
		OriginalBody:    toValidUTF8(a.Body),
		TranslatedBody:  toValidUTF8(a.TranslatedBody),
		SourceLocale:    p.SourceLocale,
		TargetLocale:    p.TargetLocale,
		Meta: map[string]any{
			"published":          a.PublishedText,
			"untranslated_lines": a.UntranslatedLines,
		},
	}
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
