package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/EditorialHub/internal/api"
	"github.com/LJTian/EditorialHub/internal/app"
	"github.com/LJTian/EditorialHub/internal/config"
	"github.com/LJTian/EditorialHub/internal/scheduler"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	s, err := scheduler.New(cfg.CronSpec, a.Orchestrator, a.Sections)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	limiter := api.NewRateLimiter(float64(cfg.APIRateLimit), cfg.APIRateLimit*2)
	// 每分钟清理一次不活跃的限流客户端
	if _, err := s.Cron().AddFunc("@every 1m", func() { limiter.Cleanup(time.Now()) }); err != nil {
		log.Printf("warn: add limiter cleanup failed: %v", err)
	}

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	if cfg.APIRateLimit > 0 {
		r.Use(limiter.Middleware())
	}

	api.NewServer(a.Store, s).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	s.Stop()
}
