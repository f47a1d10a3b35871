package httpserver

import (
	"context"
	"net/http"
	"time"

	"bill_reminder_service/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const manualRunTimeout = 15 * time.Minute

// Server exposes the administrative trigger surface: a manual run endpoint
// that executes a full pass synchronously and returns the RunReport, so an
// operator sees exactly what failed without log-diving.
type Server struct {
	runner app.ReminderRunner
	logger *logrus.Logger
	srv    *http.Server
}

func New(runner app.ReminderRunner, logger *logrus.Logger, listenAddr string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{runner: runner, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/api/v1/reminders/run", s.triggerRun)

	s.srv = &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}
	return s
}

func (s *Server) triggerRun(c *gin.Context) {
	s.logger.Info("Manual reminder run triggered via HTTP")

	ctx, cancel := context.WithTimeout(c.Request.Context(), manualRunTimeout)
	defer cancel()

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Errorf("Manual reminder run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
