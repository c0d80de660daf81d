package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const translateMaxResponseBytes = 256 * 1024

const translateClientTimeout = 20 * time.Second

var errEmptyTranslation = errors.New("empty translation")

// Service 翻译服务：把一段文本从 source 语言翻译为 target 语言，每次调用可能单独失败
type Service interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// GoogleService 使用 Google Translate 公开 API（client=gtx，无需 TKK/密钥）
type GoogleService struct {
	BaseURL string
	Client  *http.Client
}

func NewGoogleService() *GoogleService {
	return &GoogleService{
		BaseURL: "https://translate.googleapis.com/translate_a/single",
		Client:  &http.Client{Timeout: translateClientTimeout},
	}
}

func (g *GoogleService) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	body, err := getJSON(ctx, g.Client, g.BaseURL+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("google-gtx: %w", err)
	}

	// 响应格式: [[["翻译文本","原文",...],...],...]
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("google-gtx: decode: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("google-gtx: %w", errEmptyTranslation)
	}
	outer, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("google-gtx: unexpected response shape")
	}

	var result strings.Builder
	for _, seg := range outer {
		pair, ok := seg.([]any)
		if !ok || len(pair) < 1 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			result.WriteString(s)
		}
	}

	out := strings.TrimSpace(result.String())
	if out == "" {
		return "", fmt.Errorf("google-gtx: %w", errEmptyTranslation)
	}
	return out, nil
}

// MyMemoryService 备用的免费翻译接口
type MyMemoryService struct {
	BaseURL string
	Client  *http.Client
}

func NewMyMemoryService() *MyMemoryService {
	return &MyMemoryService{
		BaseURL: "https://api.mymemory.translated.net/get",
		Client:  &http.Client{Timeout: translateClientTimeout},
	}
}

func (m *MyMemoryService) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("langpair", source+"|"+target)
	q.Set("q", text)

	body, err := getJSON(ctx, m.Client, m.BaseURL+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("mymemory: decode: %w", err)
	}
	translated := strings.TrimSpace(out.ResponseData.TranslatedText)
	if translated == "" {
		return "", fmt.Errorf("mymemory: %w", errEmptyTranslation)
	}
	return translated, nil
}

// Chain 依次尝试多个翻译服务，第一个成功的结果即返回
type Chain []Service

func (c Chain) Translate(ctx context.Context, text, source, target string) (string, error) {
	var errs []error
	for _, s := range c {
		out, err := s.Translate(ctx, text, source, target)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no translation service configured")
	}
	return "", errors.Join(errs...)
}

func getJSON(ctx context.Context, client *http.Client, apiURL string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: translateClientTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, translateMaxResponseBytes))
}
