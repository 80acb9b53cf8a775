// Package api serves the CampusConnect REST backend and the live interview
// websocket.
package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/config"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/live"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB     *gorm.DB
	Config *config.Config
	Out    io.Writer

	// Interviewer runs live calls; Analyzer scores them afterwards.
	Interviewer interview.Interviewer
	Analyzer    interview.Analyzer

	// Calls holds active sessions and practice history. Defaults to an
	// in-memory store.
	Calls *call.Store

	// Dial opens Deepgram streams when voice.recognizer is "deepgram".
	Dial live.Dialer
}

// Server holds the dependencies shared by the handlers.
type Server struct {
	db      *gorm.DB
	cfg     *config.Config
	out     io.Writer
	issuer  *auth.Issuer
	revoked *auth.Revocations
	ai      interview.Interviewer
	calls   *call.Store
	setup   *call.Setup
	analyst *call.Analyst
	dial    live.Dialer
	feed    *feedHub

	upgrader websocket.Upgrader
}

// New validates opts and builds a Server.
func New(opts StartOpts) (*Server, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("api: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("api: config is required")
	}
	if opts.Calls == nil {
		opts.Calls = call.NewStore(nil)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	s := &Server{
		db:      opts.DB,
		cfg:     opts.Config,
		out:     opts.Out,
		issuer:  auth.NewIssuer(opts.Config.Auth.JWTSecret, opts.Config.TokenTTL()),
		revoked: auth.NewRevocations(opts.DB),
		ai:      opts.Interviewer,
		calls:   opts.Calls,
		dial:    opts.Dial,
		feed:    newFeedHub(),
	}
	if opts.Interviewer != nil {
		s.setup = call.NewSetup(opts.Interviewer, opts.Calls)
	}
	if opts.Analyzer != nil {
		s.analyst = call.NewAnalyst(opts.Analyzer, opts.Calls, interviewRecorder{db: opts.DB})
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	return s, nil
}

// Handler returns the configured gin engine.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(s.out), gin.Recovery())
	router.Use(s.cors())

	registerRoutes(router, s)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Route %s not found", c.Request.URL.RequestURI())})
	})
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	s, err := New(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", opts.Config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams and live calls end with the server.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(s.out, "CampusConnect API running at http://localhost:%d/api\n", opts.Config.Server.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
