package translator

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"
)

// 单次请求的最大字符数，过长的段落按句子切分后逐段翻译（gtx 走 GET，URL 不能太长）
const chunkMaxRunes = 1500

// Result 一次整段翻译的结果；Text 与原文行数相同，Failed 为保留原文的行数
type Result struct {
	Text   string
	Lines  int
	Failed int
}

type lineResult struct {
	text string
	err  error
}

// Translator 逐行翻译文本，单行失败时保留原文，不影响其它行
type Translator struct {
	service Service
	Source  string
	Target  string
}

func New(service Service, source, target string) *Translator {
	return &Translator{service: service, Source: source, Target: target}
}

// Translate 按换行切分后逐行翻译；空行原样保留且不发送，输出行数与输入一致
func (t *Translator) Translate(ctx context.Context, text string) Result {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	res := Result{Lines: len(lines)}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		r := t.translateLine(ctx, line)
		if r.err != nil {
			log.Printf("warn: translation failed, keep original line %d: %v", i+1, r.err)
			out[i] = line
			res.Failed++
			continue
		}
		out[i] = r.text
	}

	res.Text = strings.Join(out, "\n")
	return res
}

func (t *Translator) translateLine(ctx context.Context, line string) lineResult {
	chunks := splitChunks(strings.TrimSpace(line), chunkMaxRunes)
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		translated, err := t.service.Translate(ctx, c, t.Source, t.Target)
		if err != nil {
			return lineResult{err: err}
		}
		parts = append(parts, translated)
	}
	// 译文中若带换行会破坏行对齐
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return lineResult{text: text}
}

// splitChunks 在句末标点处切分，使每段不超过 limit 个字符；单句过长时按字符硬切
func splitChunks(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if c := strings.TrimSpace(cur.String()); c != "" {
			chunks = append(chunks, c)
		}
		cur.Reset()
		curLen = 0
	}

	for _, sentence := range sentences(s) {
		n := utf8.RuneCountInString(sentence)
		if n > limit {
			flush()
			rs := []rune(sentence)
			for len(rs) > 0 {
				end := min(limit, len(rs))
				if c := strings.TrimSpace(string(rs[:end])); c != "" {
					chunks = append(chunks, c)
				}
				rs = rs[end:]
			}
			continue
		}
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(sentence)
		curLen += n
	}
	flush()
	return chunks
}

// sentences 切分后每句保留结尾的标点与空格，拼接后等于原文
func sentences(s string) []string {
	var out []string
	start := 0
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '.', '?', '!':
			if i+1 < len(rs) && rs[i+1] == ' ' {
				out = append(out, string(rs[start:i+2]))
				start = i + 2
				i++
			}
		}
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}
