// Package server exposes preferences, translation and cache administration
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/ZaguanLabs/chatlai/cache"
	"github.com/ZaguanLabs/chatlai/internal/notice"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheAdmin is the part of the cache the API manages.
type CacheAdmin interface {
	Stats() cache.Stats
	EvictExpired(now time.Time) int
}

// Server wires HTTP handlers to a Translator.
type Server struct {
	translator *chatlai.Translator
	cache      CacheAdmin
	notices    *notice.Notices
	logger     *zap.Logger
	checks     map[string]func(context.Context) error
}

// New creates a Server. cacheAdmin may be nil when no cache is configured.
func New(translator *chatlai.Translator, cacheAdmin CacheAdmin, notices *notice.Notices, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notices == nil {
		notices = notice.New("en", logger)
	}
	return &Server{
		translator: translator,
		cache:      cacheAdmin,
		notices:    notices,
		logger:     logger,
		checks:     make(map[string]func(context.Context) error),
	}
}

// AddCheck registers a dependency checked by /healthz.
func (s *Server) AddCheck(name string, check func(context.Context) error) {
	s.checks[name] = check
}

// Router builds the gin engine. mode is a gin mode: debug, release or test.
func (s *Server) Router(mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	r.GET("/healthz", s.healthz)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users/:user_id")
		users.PUT("/language", s.setLanguage)
		users.GET("/language", s.getLanguage)
		users.DELETE("/language", s.clearLanguage)
		users.DELETE("", s.clearUser)

		api.POST("/translate", s.translate)

		api.GET("/cache/stats", s.cacheStats)
		api.POST("/cache/evict", s.cacheEvict)
	}

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr, mode string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(mode),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setLanguageRequest struct {
	TargetLanguage string       `json:"target_language" binding:"required"`
	SourceLanguage chatlai.Lang `json:"source_language"`
}

type translateRequest struct {
	UserID      *int64         `json:"user_id" binding:"required"`
	ChatID      chatlai.ChatID `json:"chat_id"`
	Text        string         `json:"text"`
	ContentType string         `json:"content_type"`
}

func (s *Server) setLanguage(c *gin.Context) {
	userID, chat, ok := s.scope(c)
	if !ok {
		return
	}

	var req setLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref, err := s.translator.Preferences().Set(c.Request.Context(), chatlai.UserLanguage{
		UserID:         userID,
		ChatID:         chat,
		TargetLanguage: req.TargetLanguage,
		SourceLanguage: req.SourceLanguage,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preference": pref,
		"notice":     s.notices.Saved(pref),
	})
}

func (s *Server) getLanguage(c *gin.Context) {
	userID, chat, ok := s.scope(c)
	if !ok {
		return
	}

	pref, err := s.translator.Preferences().Get(c.Request.Context(), userID, chat)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": pref})
}

func (s *Server) clearLanguage(c *gin.Context) {
	userID, chat, ok := s.scope(c)
	if !ok {
		return
	}

	if err := s.translator.Preferences().Clear(c.Request.Context(), userID, chat); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearUser(c *gin.Context) {
	userID, _, ok := s.scope(c)
	if !ok {
		return
	}

	if err := s.translator.Preferences().ClearUser(c.Request.Context(), userID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userID := *req.UserID
	if req.ContentType == "" || req.ContentType == "text" {
		res, err := s.translator.Translate(ctx, userID, req.ChatID, req.Text)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := s.translator.TranslateMessage(ctx, userID, req.ChatID, req.Text, req.ContentType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cacheStats(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cache disabled"})
		return
	}
	c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) cacheEvict(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cache disabled"})
		return
	}
	n := s.cache.EvictExpired(time.Now())
	c.JSON(http.StatusOK, gin.H{"evicted": n})
}

// scope parses :user_id and the optional chat_id query parameter.
func (s *Server) scope(c *gin.Context) (int64, chatlai.ChatID, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, chatlai.ChatID{}, false
	}

	raw, ok := c.GetQuery("chat_id")
	if !ok {
		return userID, chatlai.NoChat(), true
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
		return 0, chatlai.ChatID{}, false
	}
	return userID, chatlai.Chat(chatID), true
}

// fail maps domain errors to HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	locale := c.GetHeader("Accept-Language")

	var procErr *chatlai.ProcessorError
	switch {
	case errors.Is(err, chatlai.ErrInvalidLanguageCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chatlai.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":  err.Error(),
			"notice": s.notices.Message(locale, notice.PreferenceMissing, nil),
		})
	case errors.As(err, &procErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case chatlai.IsProviderError(err):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"notice": s.notices.Message(locale, notice.TranslationUnavailable, nil),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
