package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/EditorialHub/internal/collector"
	"github.com/LJTian/EditorialHub/internal/processor"
	"github.com/LJTian/EditorialHub/internal/storage"
	"github.com/LJTian/EditorialHub/internal/translator"
	"github.com/google/uuid"
)

// Store 一轮采集用到的 storage.Store 子集
type Store interface {
	Exists(url string) (bool, error)
	Create(p processor.ProcessedArticle) (*storage.Article, bool, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type Scanner interface {
	Scan(baseURL string, maxPages int) []string
}

type Extractor interface {
	Extract(url string) (*collector.ExtractedArticle, error)
}

// Publisher 接收每条新入库的文章，可选
type Publisher interface {
	Publish(ctx context.Context, a *storage.Article) error
}

type Options struct {
	Retention     time.Duration
	CourtesyDelay time.Duration
	MaxPages      int
}

// Orchestrator 执行一轮采集：保留期清理 -> 扫描列表 -> 去重 -> 提取 -> 翻译 -> 入库
type Orchestrator struct {
	scanner    Scanner
	extractor  Extractor
	translator *translator.Translator
	processor  *processor.SimpleProcessor
	store      Store
	publisher  Publisher
	opts       Options

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(scanner Scanner, extractor Extractor, tr *translator.Translator, p *processor.SimpleProcessor, store Store, opts Options) *Orchestrator {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Orchestrator{
		scanner:    scanner,
		extractor:  extractor,
		translator: tr,
		processor:  p,
		store:      store,
		opts:       opts,
		Now:        time.Now,
		Sleep:      sleepContext,
	}
}

// WithPublisher 设置新文章的发布目标
func (o *Orchestrator) WithPublisher(p Publisher) *Orchestrator {
	o.publisher = p
	return o
}

type SectionReport struct {
	Name    string
	Links   int
	Skipped int
	Created int
	Failed  int
}

type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Purged     int64
	Sections   []SectionReport
}

// Created 所有栏目本轮新增的条数
func (r Report) Created() int {
	n := 0
	for _, s := range r.Sections {
		n += s.Created
	}
	return n
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeFailed
)

// Run 先清理过期文章，再按顺序处理各栏目；单篇文章出错只记日志，不中断本轮
func (o *Orchestrator) Run(ctx context.Context, sections []collector.Section) Report {
	report := Report{RunID: uuid.New(), StartedAt: o.now()}
	log.Printf("ingest run %s started, %d sections", report.RunID, len(sections))

	if o.opts.Retention > 0 {
		cutoff := o.now().Add(-o.opts.Retention)
		purged, err := o.store.DeleteOlderThan(cutoff)
		if err != nil {
			log.Printf("retention sweep error: %v", err)
		} else {
			report.Purged = purged
			log.Printf("retention sweep: deleted %d articles created before %s", purged, cutoff.Format(time.RFC3339))
		}
	}

	for _, sec := range sections {
		if ctx.Err() != nil {
			break
		}
		report.Sections = append(report.Sections, o.runSection(ctx, report.RunID, sec))
	}

	report.FinishedAt = o.now()
	log.Printf("ingest run %s done, created=%d purged=%d", report.RunID, report.Created(), report.Purged)
	return report
}

func (o *Orchestrator) runSection(ctx context.Context, runID uuid.UUID, sec collector.Section) SectionReport {
	log.Printf("fetching %s...", sec.Name)
	sr := SectionReport{Name: sec.Name}

	links := o.scanner.Scan(sec.URL, o.opts.MaxPages)
	sr.Links = len(links)

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		out, err := o.processLink(ctx, runID, sec.Name, link)
		switch out {
		case outcomeCreated:
			sr.Created++
			// 放慢节奏，别给源站压力
			if err := o.sleep(ctx, o.opts.CourtesyDelay); err != nil {
				log.Printf("%s: stopped: %v", sec.Name, err)
			}
		case outcomeFailed:
			sr.Failed++
			log.Printf("error saving %s: %v", link, err)
		default:
			sr.Skipped++
		}
	}

	log.Printf("%s: %d new articles added", sec.Name, sr.Created)
	return sr
}

func (o *Orchestrator) processLink(ctx context.Context, runID uuid.UUID, section, link string) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = outcomeFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	exists, err := o.store.Exists(link)
	if err != nil {
		return outcomeFailed, fmt.Errorf("check existing: %w", err)
	}
	if exists {
		return outcomeSkipped, nil
	}

	article, err := o.extractor.Extract(link)
	if err != nil {
		// 抓取失败、没有时间戳、不是今天的文章，collector 已记过日志
		return outcomeSkipped, nil
	}
	if strings.TrimSpace(article.Body) == "" {
		log.Printf("skip %s, empty body", link)
		return outcomeSkipped, nil
	}

	title := o.translator.Translate(ctx, article.Title)
	body := o.translator.Translate(ctx, article.Body)
	// 翻译途中被取消时不入库，留给下一轮
	if err := ctx.Err(); err != nil {
		log.Printf("skip %s, run cancelled before save", link)
		return outcomeSkipped, err
	}

	rec := o.processor.Process(section, processor.TranslatedArticle{
		ExtractedArticle:  *article,
		TranslatedTitle:   title.Text,
		TranslatedBody:    body.Text,
		UntranslatedLines: title.Failed + body.Failed,
	})
	rec.Meta["run_id"] = runID.String()

	stored, created, err := o.store.Create(rec)
	if err != nil {
		return outcomeFailed, fmt.Errorf("create record: %w", err)
	}
	if !created {
		log.Printf("skip %s, already stored", link)
		return outcomeSkipped, nil
	}
	log.Printf("saved: %s", article.Title)

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, stored); err != nil {
			log.Printf("publish %s error: %v", link, err)
		}
	}
	return outcomeCreated, nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
