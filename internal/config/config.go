package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Section 一个需要采集的栏目（名称 -> 列表页地址）
type Section struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultSections 与原站点保持一致：社论 + 专栏
var DefaultSections = []Section{
	{Name: "Editorial", URL: "https://www.dawn.com/newspaper/editorial"},
	{Name: "Opinion", URL: "https://www.dawn.com/newspaper/column"},
}

type Config struct {
	AppPort string

	DBDriver  string
	DBDSN     string
	RedisAddr string

	CronSpec string

	Sections       []Section
	RetentionDays  int
	CourtesyDelay  time.Duration
	MaxPages       int
	RequestTimeout time.Duration

	SourceLocale string
	TargetLocale string
	TimeZone     string

	KafkaBroker string
	KafkaTopic  string

	BasicAuthUser string
	BasicAuthPass string
	APIRateLimit  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBDSN:          getEnv("DB_DSN", "host=localhost user=editorialhub password=editorialhub dbname=editorialhub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		CronSpec:       getEnv("CRON_SPEC", "0 * * * *"),
		RetentionDays:  getInt("RETENTION_DAYS", 3),
		CourtesyDelay:  getDuration("COURTESY_DELAY", time.Second),
		MaxPages:       getInt("MAX_PAGES", 1),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
		SourceLocale:   getEnv("SOURCE_LOCALE", "en"),
		TargetLocale:   getEnv("TARGET_LOCALE", "ur"),
		TimeZone:       getEnv("TIMEZONE", ""),
		KafkaBroker:    getEnv("KAFKA_BROKER", ""),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "editorial-articles"),
		BasicAuthUser:  getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:  getEnv("APP_BASIC_PASS", ""),
		APIRateLimit:   getInt("API_RATE_LIMIT", 20),
	}

	sections, err := loadSections(getEnv("SECTIONS_FILE", ""), getEnv("SECTIONS", ""))
	if err != nil {
		log.Printf("warn: %v, using default sections", err)
		sections = DefaultSections
	}
	cfg.Sections = sections

	log.Printf("config loaded: port=%s cron=%s sections=%d retention=%dd", cfg.AppPort, cfg.CronSpec, len(cfg.Sections), cfg.RetentionDays)
	return cfg
}

// Retention 返回保留窗口
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Location 返回判断“今天”所用的时区，未配置或无效时使用进程本地时区
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("warn: invalid TIMEZONE %q: %v", c.TimeZone, err)
		return time.Local
	}
	return loc
}

type sectionsFile struct {
	Sections []Section `yaml:"sections"`
}

// loadSections 优先读取 YAML 文件，其次解析 "Name=URL,Name=URL"，都没有则返回默认栏目
func loadSections(path, spec string) ([]Section, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sections file: %w", err)
		}
		var f sectionsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse sections file: %w", err)
		}
		if len(f.Sections) == 0 {
			return nil, fmt.Errorf("sections file %s has no sections", path)
		}
		return f.Sections, nil
	}

	if strings.TrimSpace(spec) == "" {
		return DefaultSections, nil
	}

	var out []Section
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, u, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(u) == "" {
			return nil, fmt.Errorf("invalid section %q", part)
		}
		out = append(out, Section{Name: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("SECTIONS is empty")
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d < 0 {
		log.Printf("warn: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// Clock 返回配置时区下的当前时间，供存储、采集和日期判断共用同一个时钟
func (c *Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time {
		return time.Now().In(loc)
	}
}
