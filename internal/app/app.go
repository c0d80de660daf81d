package app

import (
	"log"

	"github.com/LJTian/EditorialHub/internal/collector"
	"github.com/LJTian/EditorialHub/internal/config"
	"github.com/LJTian/EditorialHub/internal/events"
	"github.com/LJTian/EditorialHub/internal/ingest"
	"github.com/LJTian/EditorialHub/internal/processor"
	"github.com/LJTian/EditorialHub/internal/storage"
	"github.com/LJTian/EditorialHub/internal/translator"
)

// App 由配置组装好的存储与采集流水线，cmd 下的两个入口共用
type App struct {
	Config       *config.Config
	Store        *storage.Store
	Orchestrator *ingest.Orchestrator
	Producer     *events.Producer
	Sections     []collector.Section
}

func New(cfg *config.Config) (*App, error) {
	store, err := storage.NewStore(cfg.DBDriver, cfg.DBDSN, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location()
	clock := cfg.Clock()
	store.Location = loc
	store.Now = clock

	// 确保各个栏目存在
	sections := make([]collector.Section, 0, len(cfg.Sections))
	for _, sec := range cfg.Sections {
		if _, err := store.EnsureSection(sec.Name, sec.URL); err != nil {
			return nil, err
		}
		sections = append(sections, collector.Section{Name: sec.Name, URL: sec.URL})
	}

	fetcher := collector.NewFetcher(cfg.RequestTimeout)
	classifier := collector.NewClassifier(loc)
	classifier.Now = clock
	extractor := collector.NewExtractor(fetcher, classifier)

	// 先走 Google，失败再用 MyMemory；结果缓存在 Redis
	service := translator.NewCachedService(translator.Chain{
		translator.NewGoogleService(),
		translator.NewMyMemoryService(),
	}, store.Redis)
	tr := translator.New(service, cfg.SourceLocale, cfg.TargetLocale)

	orch := ingest.New(
		collector.NewScanner(fetcher),
		extractor,
		tr,
		processor.NewSimpleProcessor(cfg.SourceLocale, cfg.TargetLocale),
		store,
		ingest.Options{
			Retention:     cfg.Retention(),
			CourtesyDelay: cfg.CourtesyDelay,
			MaxPages:      cfg.MaxPages,
		},
	)

	orch.Now = clock

	a := &App{
		Config:       cfg,
		Store:        store,
		Orchestrator: orch,
		Sections:     sections,
	}
	if cfg.KafkaBroker != "" {
		a.Producer = events.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		orch.WithPublisher(a.Producer)
	} else {
		log.Println("kafka not configured, article events disabled")
	}
	return a, nil
}

func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			log.Printf("close kafka producer: %v", err)
		}
	}
	if a.Store.Redis != nil {
		_ = a.Store.Redis.Close()
	}
	if db, err := a.Store.DB.DB(); err == nil {
		_ = db.Close()
	}
}
