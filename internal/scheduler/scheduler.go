package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/LJTian/EditorialHub/internal/collector"
	"github.com/LJTian/EditorialHub/internal/ingest"
	"github.com/robfig/cron/v3"
)

// Runner 执行一轮采集，ingest.Orchestrator 实现了它
type Runner interface {
	Run(ctx context.Context, sections []collector.Section) ingest.Report
}

type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	sections []collector.Section

	// 同一时刻只允许一轮采集
	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// StartupDelay 启动后首轮采集的延迟，<=0 表示不做首轮采集
	StartupDelay time.Duration
	last         *ingest.Report
	lastMu       sync.RWMutex
}

func New(spec string, runner Runner, sections []collector.Section) (*Scheduler, error) {
	c := cron.New()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:         c,
		runner:       runner,
		sections:     sections,
		ctx:          ctx,
		cancel:       cancel,
		StartupDelay: 15 * time.Second,
	}

	_, err := c.AddFunc(spec, func() { s.RunOnce() })
	if err != nil {
		cancel()
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮采集，避免与服务启动争抢资源
	if s.StartupDelay > 0 {
		time.AfterFunc(s.StartupDelay, func() {
			go s.RunOnce()
		})
	}
}

// Stop 停止定时任务并取消正在进行的一轮，等待其结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发采集；已有一轮在跑时直接返回 false
func (s *Scheduler) RunOnce() bool {
	if !s.mu.TryLock() {
		log.Println("collect job already running, skip")
		return false
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.mu.Unlock()
	s.run()
	return true
}

// Trigger 在后台启动一轮采集，立即返回是否成功启动
func (s *Scheduler) Trigger() bool {
	if !s.mu.TryLock() {
		log.Println("collect job already running, skip")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.mu.Unlock()
		s.run()
	}()
	return true
}

// run 调用方需持有 mu 并已 wg.Add(1)
func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}

	log.Println("start collect job...")
	report := s.runner.Run(s.ctx, s.sections)
	s.lastMu.Lock()
	s.last = &report
	s.lastMu.Unlock()

	log.Printf("collect job done, run=%s created=%d purged=%d", report.RunID, report.Created(), report.Purged)
}

// Running 当前是否有一轮采集在进行
func (s *Scheduler) Running() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// LastReport 最近一轮采集的结果，尚未执行过时返回 nil
func (s *Scheduler) LastReport() *ingest.Report {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}
