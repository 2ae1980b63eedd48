package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// Server serves the progress snapshot on a small embedded HTTP endpoint.
type Server struct {
	srv     *http.Server
	tracker *Tracker
	logger  logger.Logger
}

func NewServer(cfg config.StatusConfig, tracker *Tracker, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"*"}
	corsCfg.AllowMethods = []string{"GET", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.Snapshot())
	})

	return &Server{
		srv: &http.Server{
			Addr:    cfg.Addr,
			Handler: r,
		},
		tracker: tracker,
		logger:  log,
	}
}

// Start runs the server in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Status server listening", logger.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server error", logger.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Status server forced to shut down", logger.Error(err))
	}
}
