// Package remote exposes scene loading over HTTP and a live-reload websocket.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/wes321/dingcad/hal"
	"github.com/wes321/dingcad/internal/buildinfo"
)

// Host is the application the server drives.
type Host interface {
	LoadSceneFromCode(code string)
	StatusMessage() string
}

const (
	DefaultAddr         = "127.0.0.1:7878"
	DefaultPollInterval = 100 * time.Millisecond

	maxSceneBytes   = "4M"
	shutdownTimeout = 3 * time.Second
)

type Config struct {
	Addr string
	// PollInterval is how often websocket clients are checked for a
	// status change.
	PollInterval time.Duration
	Logger       *zap.Logger
}

type statusResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	host     Host
	addr     string
	poll     time.Duration
	log      *zap.Logger
	e        *echo.Echo
	upgrader websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
	conns     sync.WaitGroup
}

func New(host Host, cfg Config) *Server {
	s := &Server{
		host: host,
		addr: cfg.Addr,
		poll: cfg.PollInterval,
		log:  cfg.Logger,
		done: make(chan struct{}),
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxSceneBytes))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("request", zap.String("method", v.Method), zap.String("uri", v.URI), zap.Int("status", v.Status))
			return nil
		},
	}))

	e.POST("/scene", s.postScene)
	e.GET("/status", s.getStatus)
	e.GET("/version", s.getVersion)
	e.GET("/ws", s.serveWS)
	s.e = e
	return s
}

// Handler returns the HTTP handler, for mounting or tests.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves until ctx ends, then shuts down gracefully and disconnects
// websocket clients.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("remote listening", zap.String("addr", s.addr))
		errCh <- s.e.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("remote: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(sctx); err != nil {
		return fmt.Errorf("remote: shutdown: %w", err)
	}
	s.conns.Wait()
	return nil
}

// Close disconnects websocket clients. It does not stop the listener.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) postScene(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No scene code provided"})
	}
	s.host.LoadSceneFromCode(string(body))
	return c.JSON(http.StatusAccepted, statusResponse{Status: s.host.StatusMessage()})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{Status: s.host.StatusMessage()})
}

func (s *Server) getVersion(c echo.Context) error {
	buildinfo.LogBuildVersion(hal.NewLogger(s.log))
	return c.JSON(http.StatusOK, versionResponse{
		Version: buildinfo.Short(),
		Commit:  buildinfo.Commit,
		Date:    buildinfo.Date,
	})
}

// serveWS treats every text message as scene source and pushes the status
// whenever it changes.
func (s *Server) serveWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	s.conns.Add(1)
	defer s.conns.Done()
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() {
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if kind == websocket.TextMessage && len(msg) > 0 {
				s.host.LoadSceneFromCode(string(msg))
			}
		}
	}()

	t := time.NewTicker(s.poll)
	defer t.Stop()

	last := s.host.StatusMessage()
	if err := conn.WriteJSON(statusResponse{Status: last}); err != nil {
		return nil
	}
	for {
		select {
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil
		case err := <-readErr:
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read ended", zap.Error(err))
			}
			return nil
		case <-t.C:
			status := s.host.StatusMessage()
			if status == last {
				continue
			}
			last = status
			if err := conn.WriteJSON(statusResponse{Status: status}); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return nil
			}
		}
	}
}
