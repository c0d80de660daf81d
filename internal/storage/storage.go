package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LJTian/EditorialHub/internal/processor"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

const listCacheTTL = 5 * time.Minute

// Section 描述一个栏目，例如 Editorial / Opinion
type Section struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Code    string `gorm:"size:64;uniqueIndex" json:"code"` // 例如: editorial, opinion
	Name    string `gorm:"size:128" json:"name"`
	BaseURL string `gorm:"size:256" json:"baseUrl"`
	Status  string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Article 双语文章记录。只创建不更新，仅由保留期清理删除
type Article struct {
	ID              string            `gorm:"primaryKey;size:40" json:"id"`
	Section         string            `gorm:"size:128;index" json:"section"`
	OriginalTitle   string            `gorm:"type:text" json:"originalTitle"`
	TranslatedTitle string            `gorm:"type:text" json:"translatedTitle"`
	OriginalBody    string            `gorm:"type:text" json:"originalBody"`
	TranslatedBody  string            `gorm:"type:text" json:"translatedBody"`
	URL             string            `gorm:"size:1024;uniqueIndex" json:"url"`
	SourceLocale    string            `gorm:"size:16" json:"sourceLocale"`
	TargetLocale    string            `gorm:"size:16" json:"targetLocale"`
	Meta            datatypes.JSONMap `json:"meta"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Location 按天查询时的日期边界所在时区
	Location *time.Location
	Now      func() time.Time
}

// Open 按驱动名打开数据库：postgres（默认）或 sqlite
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

func NewStore(driver, dsn, redisAddr string) (*Store, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return New(db, rdb)
}

// New 在已有连接上建表并返回 Store；rdb 可以为 nil（不使用缓存）
func New(db *gorm.DB, rdb *redis.Client) (*Store, error) {
	if err := db.AutoMigrate(&Section{}, &Article{}); err != nil {
		return nil, err
	}
	return &Store{DB: db, Redis: rdb, Location: time.Local, Now: time.Now}, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// EnsureSection 确保某个栏目存在
func (s *Store) EnsureSection(name, baseURL string) (*Section, error) {
	code := strings.ToLower(strings.TrimSpace(name))
	sec := &Section{}
	if err := s.silent().Where("code = ?", code).First(sec).Error; err == nil {
		return sec, nil
	}

	sec = &Section{
		Code:    code,
		Name:    name,
		BaseURL: baseURL,
		Status:  "active",
	}
	if err := s.DB.Create(sec).Error; err != nil {
		return nil, err
	}
	return sec, nil
}

// ListSections 返回所有栏目
func (s *Store) ListSections() ([]Section, error) {
	var list []Section
	err := s.DB.Order("id ASC").Find(&list).Error
	return list, err
}

// Exists 以 URL 判断文章是否已入库
func (s *Store) Exists(url string) (bool, error) {
	var n int64
	if err := s.DB.Model(&Article{}).Where("url = ?", url).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create 写入一条文章记录；URL 冲突时什么也不做并返回 created=false
func (s *Store) Create(p processor.ProcessedArticle) (*Article, bool, error) {
	a := &Article{
		ID:              p.ID,
		Section:         p.Section,
		OriginalTitle:   p.OriginalTitle,
		TranslatedTitle: p.TranslatedTitle,
		OriginalBody:    p.OriginalBody,
		TranslatedBody:  p.TranslatedBody,
		URL:             p.URL,
		SourceLocale:    p.SourceLocale,
		TargetLocale:    p.TargetLocale,
		Meta:            datatypes.JSONMap(p.Meta),
		CreatedAt:       s.now().UTC(),
	}

	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	if s.Redis != nil {
		day := a.CreatedAt.In(s.location()).Format("2006-01-02")
		_ = s.Redis.Del(context.Background(), listCacheKey(a.Section, day), listCacheKey("", day)).Err()
	}
	return a, true, nil
}

// DeleteOlderThan 删除创建时间早于 cutoff 的文章，返回删除条数
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := s.DB.Where("created_at < ?", cutoff.UTC()).Delete(&Article{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.purgeListCache()
	}
	return res.RowsAffected, nil
}

// purgeListCache 清理后列表缓存里可能还有已删除的文章，直接全部失效
func (s *Store) purgeListCache() {
	if s.Redis == nil {
		return
	}
	ctx := context.Background()
	iter := s.Redis.Scan(ctx, 0, listCacheKey("*", "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("warn: scan list cache: %v", err)
	}
	if len(keys) > 0 {
		_ = s.Redis.Del(ctx, keys...).Err()
	}
}

// ListArticles 返回某栏目在 day 当天（Store.Location 时区）创建的文章，按创建时间倒序；使用 Redis 做简单缓存
func (s *Store) ListArticles(section string, day time.Time) ([]Article, error) {
	loc := s.location()
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	date := start.Format("2006-01-02")

	ctx := context.Background()
	cacheKey := listCacheKey(section, date)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Article
	db := s.DB.Model(&Article{}).Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC())
	if section != "" {
		db = db.Where("section = ?", section)
	}
	if err := db.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

// GetArticle 按 ID 获取单条文章
func (s *Store) GetArticle(id string) (*Article, error) {
	var a Article
	err := s.silent().Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) silent() *gorm.DB {
	return s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
}

func listCacheKey(section, date string) string {
	return fmt.Sprintf("articles:list:%s:%s", section, date)
}
