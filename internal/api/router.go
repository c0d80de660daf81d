package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/LJTian/EditorialHub/internal/storage"
	"github.com/gin-gonic/gin"
)

// Trigger 手动触发一轮采集，scheduler.Scheduler 实现了它
type Trigger interface {
	Trigger() bool
	Running() bool
}

type Server struct {
	store   *storage.Store
	trigger Trigger
}

func NewServer(store *storage.Store, trigger Trigger) *Server {
	return &Server{store: store, trigger: trigger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/sections", s.listSections)
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles/archive", s.listArchive)
		v1.GET("/articles/:id", s.getArticle)
		v1.POST("/ingest", s.ingest)
	}
}

func (s *Server) health(c *gin.Context) {
	running := false
	if s.trigger != nil {
		running = s.trigger.Running()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ingesting": running})
}

func (s *Server) listSections(c *gin.Context) {
	list, err := s.store.ListSections()
	if err != nil {
		internalError(c)
		return
	}
	ok(c, list)
}

// listArticles 默认返回今天的文章，可用 date=2006-01-02 指定日期
func (s *Server) listArticles(c *gin.Context) {
	day := s.today()
	if v := c.Query("date"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, s.location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "invalid_date",
				"message": "date must be YYYY-MM-DD",
			})
			return
		}
		day = d
	}
	s.respondDay(c, day)
}

// listArchive 昨天的文章
func (s *Server) listArchive(c *gin.Context) {
	s.respondDay(c, s.today().AddDate(0, 0, -1))
}

func (s *Server) respondDay(c *gin.Context, day time.Time) {
	items, err := s.store.ListArticles(c.Query("section"), day)
	if err != nil {
		internalError(c)
		return
	}
	if items == nil {
		items = []storage.Article{}
	}
	ok(c, items)
}

func (s *Server) getArticle(c *gin.Context) {
	a, err := s.store.GetArticle(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "article not found",
		})
		return
	}
	if err != nil {
		internalError(c)
		return
	}
	ok(c, a)
}

func (s *Server) ingest(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "ingestion is not enabled",
		})
		return
	}
	if !s.trigger.Trigger() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "already_running",
			"message": "an ingestion run is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "ingestion started",
	})
}

func (s *Server) location() *time.Location {
	if s.store.Location != nil {
		return s.store.Location
	}
	return time.Local
}

func (s *Server) today() time.Time {
	now := time.Now
	if s.store.Now != nil {
		now = s.store.Now
	}
	return now().In(s.location())
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
