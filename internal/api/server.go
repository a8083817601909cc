// Package api serves the classification page and its JSON twin.
package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pbaille/ods/internal/config"
	"github.com/pbaille/ods/internal/domain"
	"github.com/pbaille/ods/internal/present"
	"github.com/pbaille/ods/internal/session"
)

const shutdownTimeout = 30 * time.Second

// HealthChecker reports the state of the classification service
type HealthChecker interface {
	Health(ctx context.Context) (*domain.HealthStatus, error)
}

// Server handles HTTP requests for the classification page. Each browser
// gets its own display, tracked by a cookie.
type Server struct {
	visitors  *visitors
	health    HealthChecker
	log       *zap.Logger
	addr      string
	maxUpload int64
}

// New creates a new page server. newSession builds the display state for a
// new visitor; sessions that should not retrain concurrently must share a
// session.RetrainGuard.
func New(newSession func() *session.Session, health HealthChecker, log *zap.Logger, cfg config.ServerConfig) *Server {
	return &Server{
		visitors:  newVisitors(newSession, maxVisitors),
		health:    health,
		log:       log,
		addr:      cfg.Addr,
		maxUpload: cfg.MaxUploadBytes,
	}
}

// Handler builds the gin engine with all routes
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.maxUpload
	router.SetHTMLTemplate(pageTemplate)

	router.Use(RequestID())
	router.Use(Logger(s.log))
	router.Use(Recovery(s.log))

	router.GET("/", s.index)
	router.POST("/classify", s.classifyPage)
	router.POST("/retrain", s.retrainPage)

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	{
		v1.POST("/classify", s.classifyJSON)
		v1.POST("/retrain", s.retrainJSON)
	}

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("address", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	s.log.Info("Server exited")
	return nil
}

// sessionFor returns the caller's session, creating it on first use
func (s *Server) sessionFor(c *gin.Context) *session.Session {
	return s.visitors.get(visitorID(c))
}

func (s *Server) index(c *gin.Context) {
	var view present.View
	if sess, ok := s.visitors.lookup(visitorID(c)); ok {
		view = sess.View()
	}
	s.render(c, http.StatusOK, "", view)
}

func (s *Server) classifyPage(c *gin.Context) {
	texto := c.PostForm("texto")
	view := s.sessionFor(c).Classify(c.Request.Context(), texto)
	s.render(c, statusFor(view), texto, view)
}

func (s *Server) retrainPage(c *gin.Context) {
	view := s.retrainUpload(c)
	s.render(c, statusFor(view), "", view)
}

// ClassifyRequest is the request body for /api/classify
type ClassifyRequest struct {
	Texto string `json:"texto"`
}

func (s *Server) classifyJSON(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	writeView(c, s.sessionFor(c).Classify(c.Request.Context(), req.Texto))
}

func (s *Server) retrainJSON(c *gin.Context) {
	writeView(c, s.retrainUpload(c))
}

// retrainUpload hands the multipart "file" field to the session. A missing
// file reaches the session as an empty name so it reports it like any other
// missing selection.
func (s *Server) retrainUpload(c *gin.Context) present.View {
	sess := s.sessionFor(c)
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.log.Warn("Upload too large", zap.Int64("limit", tooLarge.Limit))
			_ = c.Error(err)
			return present.Failure(present.MsgRetrainFailed)
		}
		return sess.Retrain(c.Request.Context(), "", nil)
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return present.Failure(present.MsgRetrainFailed)
	}
	defer f.Close()

	return sess.Retrain(c.Request.Context(), filepath.Base(fh.Filename), f)
}

func (s *Server) healthCheck(c *gin.Context) {
	status, err := s.health.Health(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) render(c *gin.Context, status int, texto string, view present.View) {
	c.HTML(status, "index.html", pageData{
		Texto:        texto,
		Prediccion:   view.Prediction,
		Probabilidad: view.Probability,
	})
}

func writeView(c *gin.Context, view present.View) {
	c.JSON(statusFor(view), view)
}

func statusFor(view present.View) int {
	if view.OK {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
