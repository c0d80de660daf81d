package collector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
)

// Kind 发布时间文本的判定结果类别
type Kind int

const (
	Unparseable Kind = iota
	RelativeRecent
	AbsoluteDate
)

func (k Kind) String() string {
	switch k {
	case RelativeRecent:
		return "relative"
	case AbsoluteDate:
		return "absolute"
	default:
		return "unparseable"
	}
}

// Verdict 一次判定的结果；Kind 为 AbsoluteDate 时 Date 为解析出的日期（Location 时区的零点）
type Verdict struct {
	Kind   Kind
	Date   time.Time
	Text   string
	Reason string
}

var (
	publishedPrefix = regexp.MustCompile(`^(published|updated)\s*:?\s*`)
	// 页面文本拼接后常见 "202607:45am"，年份和时间粘在一起
	gluedYearTime = regexp.MustCompile(`(\d{4})(\d{1,2}:\d{2}\s*[ap]m)`)
	timeOfDay     = regexp.MustCompile(`\d{1,2}:\d{2}(:\d{2})?\s*([ap]\.?m\.?)?`)
	ymdPattern    = regexp.MustCompile(`\b(\d{4})(?:[-/.]|\s+)(\d{1,2})(?:[-/.]|\s+)(\d{1,2})\b`)
	dmyPattern    = regexp.MustCompile(`\b(\d{1,2})(?:[-/.]|\s+)(\d{1,2})(?:[-/.]|\s+)(\d{4})\b`)

	relativeMarkers = []string{"hour ago", "hours ago", "minute ago", "minutes ago"}
)

// Normalize 去掉首尾空白、转小写、去掉 "published" 前缀，并在粘连的年份与时间之间补空格
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = publishedPrefix.ReplaceAllString(s, "")
	s = gluedYearTime.ReplaceAllString(s, "$1 $2")
	return strings.TrimSpace(s)
}

type rule func(c *Classifier, text string) (Verdict, bool)

// Classifier 按顺序尝试：相对时间 -> dateparse 解析 -> 模糊分词，取第一个有把握的结果
type Classifier struct {
	Location *time.Location
	Now      func() time.Time
	rules    []rule
}

func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{
		Location: loc,
		Now:      time.Now,
		rules:    []rule{relativeRule, layoutRule, fuzzyRule},
	}
}

// Classify 对原始文本做归一化后逐条规则判定，不会 panic
func (c *Classifier) Classify(raw string) Verdict {
	text := Normalize(raw)
	if text == "" {
		return Verdict{Kind: Unparseable, Reason: "empty"}
	}
	rules := c.rules
	if len(rules) == 0 {
		rules = []rule{relativeRule, layoutRule, fuzzyRule}
	}
	for _, r := range rules {
		if v, ok := r(c, text); ok {
			v.Text = text
			return v
		}
	}
	return Verdict{Kind: Unparseable, Text: text, Reason: "no date found"}
}

// IsRecent 相对时间（几分钟/几小时前）或解析出的日期等于今天时返回 true
func (c *Classifier) IsRecent(raw string) bool {
	v := c.Classify(raw)
	switch v.Kind {
	case RelativeRecent:
		return true
	case AbsoluteDate:
		return sameDay(v.Date, c.today())
	default:
		return false
	}
}

func (c *Classifier) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Classifier) today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(c.location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func relativeRule(_ *Classifier, text string) (Verdict, bool) {
	for _, m := range relativeMarkers {
		if strings.Contains(text, m) {
			return Verdict{Kind: RelativeRecent, Reason: m}, true
		}
	}
	return Verdict{}, false
}

func layoutRule(c *Classifier, text string) (v Verdict, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v, ok = Verdict{}, false
		}
	}()

	loc := c.location()
	t, err := dateparse.ParseIn(text, loc)
	if err != nil || t.Year() < 1900 {
		return Verdict{}, false
	}
	t = t.In(loc)
	return Verdict{
		Kind:   AbsoluteDate,
		Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc),
		Reason: "layout",
	}, true
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func monthFromToken(tok string) (time.Month, bool) {
	if tok == "sept" {
		return time.September, true
	}
	if len(tok) < 3 {
		return 0, false
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, tok) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// fuzzyRule 忽略噪声词，从文本中找出 日 / 月 / 年；缺少年份时按当年处理
func fuzzyRule(c *Classifier, text string) (Verdict, bool) {
	loc := c.location()
	text = timeOfDay.ReplaceAllString(text, " ")

	if m := ymdPattern.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, err := makeDate(y, mo, d, loc); err == nil {
			return Verdict{Kind: AbsoluteDate, Date: t, Reason: "fuzzy ymd"}, true
		}
	}
	if m := dmyPattern.FindStringSubmatch(text); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		mo, d := a, b // 默认月在前
		if a > 12 {
			mo, d = b, a
		}
		if t, err := makeDate(y, mo, d, loc); err == nil {
			return Verdict{Kind: AbsoluteDate, Date: t, Reason: "fuzzy numeric"}, true
		}
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var (
		month     time.Month
		day, year int
	)
	for _, tok := range tokens {
		if month == 0 {
			if m, ok := monthFromToken(tok); ok {
				month = m
				continue
			}
		}
		n, ok := numberToken(tok)
		if !ok {
			continue
		}
		switch {
		case n >= 1900 && n <= 2100 && year == 0:
			year = n
		case n >= 1 && n <= 31 && day == 0:
			day = n
		}
	}
	if month == 0 || day == 0 {
		return Verdict{}, false
	}
	if year == 0 {
		year = c.today().Year()
	}
	t, err := makeDate(year, int(month), day, loc)
	if err != nil {
		return Verdict{}, false
	}
	return Verdict{Kind: AbsoluteDate, Date: t, Reason: "fuzzy tokens"}, true
}

// numberToken 识别 "19" / "19th" / "1st" 之类的数字
func numberToken(tok string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(tok, suffix) && len(tok) > len(suffix) {
			tok = strings.TrimSuffix(tok, suffix)
			break
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

func makeDate(y, m, d int, loc *time.Location) (time.Time, error) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", y, m, d)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", y, m, d)
	}
	return t, nil
}
