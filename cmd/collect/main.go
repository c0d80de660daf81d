package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/EditorialHub/internal/app"
	"github.com/LJTian/EditorialHub/internal/config"
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集或交给外部 cron
func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 只执行一轮采集任务后退出
	report := a.Orchestrator.Run(ctx, a.Sections)
	for _, s := range report.Sections {
		log.Printf("%-10s links=%d created=%d skipped=%d failed=%d", s.Name, s.Links, s.Created, s.Skipped, s.Failed)
	}
	log.Printf("run %s finished in %s, purged=%d", report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), report.Purged)
}
