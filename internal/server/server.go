// Package server exposes the OKR builder over HTTP: a REST surface for the
// manual editing path, a chat endpoint for the conversational path, and a
// websocket stream that pushes state changes, mutation narratives and commit
// prompts to every connected UI. Both paths mutate the same state store, so a
// change made on one side is immediately visible on the other.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nimeshgurung/okrbuilder/internal/chat"
	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/logging"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
	"github.com/nimeshgurung/okrbuilder/internal/state"
)

// MetricsRecorder is the slice of the metrics surface the HTTP layer feeds:
// chat turn counts, the live objective gauge, the stream client gauge and the
// scrape endpoint. *observability.Collector implements it.
type MetricsRecorder interface {
	RecordChatTurn(status string)
	ObjectiveCountChanged(delta int)
	StreamClientConnected()
	StreamClientDisconnected()
	Handler() http.Handler
}

// Options configures the server.
type Options struct {
	Port           string
	AllowedOrigins []string
	MetricsPath    string
	Logger         logging.Logger
	Metrics        MetricsRecorder
	Chat           *chat.Service
}

// Server ties the HTTP surface to the shared session state.
type Server struct {
	store   *state.Store
	commits *commit.Workflow
	chat    *chat.Service
	logger  logging.Logger
	metrics MetricsRecorder

	engine     *gin.Engine
	httpServer *http.Server
	hub        *hub
	upgrader   websocket.Upgrader
	startTime  time.Time
}

// New builds the server and registers its routes. It subscribes to the store
// so every successful mutation, manual or agent-driven, is broadcast to the
// stream.
func New(store *state.Store, commits *commit.Workflow, opts Options) *Server {
	logger := logging.OrNop(opts.Logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		store:   store,
		commits: commits,
		chat:    opts.Chat,
		logger:  logger,
		metrics: opts.Metrics,
		engine:  engine,
		hub:     newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		startTime: time.Now(),
	}
	if opts.Metrics != nil {
		s.hub.onConnect = opts.Metrics.StreamClientConnected
		s.hub.onDisconnect = opts.Metrics.StreamClientDisconnected
	}

	port := opts.Port
	if port == "" {
		port = "4000"
	}
	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// the live objective gauge follows the store, so agent-driven mutations
	// move it the same as REST ones
	objectiveCount := len(store.Get().Objectives)
	store.Subscribe(func(next okr.SessionState) {
		s.hub.Broadcast(EventState, next)
		if delta := len(next.Objectives) - objectiveCount; delta != 0 && s.metrics != nil {
			s.metrics.ObjectiveCountChanged(delta)
		}
		objectiveCount = len(next.Objectives)
	})

	s.setupRoutes(opts.MetricsPath)
	return s
}

func (s *Server) setupRoutes(metricsPath string) {
	api := s.engine.Group("/api")
	api.Use(jsonMiddleware())

	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleGetState)

	objectives := api.Group("/objectives")
	{
		objectives.GET("", s.handleListObjectives)
		objectives.POST("", s.handleCreateObjective)
		objectives.PUT("/:id", s.handleUpdateObjective)
		objectives.DELETE("/:id", s.handleDeleteObjective)

		objectives.POST("/:id/keyresults", s.handleCreateKeyResult)
		objectives.PUT("/:id/keyresults/:krID", s.handleUpdateKeyResult)
		objectives.DELETE("/:id/keyresults/:krID", s.handleDeleteKeyResult)

		objectives.POST("/:id/commit/request", s.handleRequestCommit)
		objectives.POST("/:id/commit/confirm", s.handleConfirmCommit)
		objectives.POST("/:id/commit/cancel", s.handleCancelCommit)
	}

	chatGroup := api.Group("/chat")
	{
		chatGroup.POST("/messages", s.handleChatMessage)
		chatGroup.GET("/suggestions", s.handleSuggestions)
	}

	s.engine.GET("/api/stream", s.handleStream)

	if s.metrics != nil && metricsPath != "" {
		s.engine.GET(metricsPath, gin.WrapH(s.metrics.Handler()))
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("OKR server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown closes the stream clients and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// BroadcastNarrative forwards a mutation narrative to the stream. Commit
// confirmation requests additionally raise a commit prompt addressed to the
// objective, which the UI renders as a confirm/cancel dialog.
func (s *Server) BroadcastNarrative(tool string, phase string, message string, objectiveID string) {
	payload := gin.H{
		"tool":    tool,
		"phase":   phase,
		"message": message,
	}
	if objectiveID != "" {
		payload["objectiveId"] = objectiveID
	}
	s.hub.Broadcast(EventNarrative, payload)

	if tool == "request_commit_confirmation" && phase == "complete" && objectiveID != "" {
		s.hub.Broadcast(EventCommitPrompt, gin.H{"objectiveId": objectiveID})
	}
}

// BroadcastRefresh tells the UIs to redraw from current state even though the
// state value itself did not change (e.g. a cancelled commit dialog).
func (s *Server) BroadcastRefresh() {
	s.hub.Broadcast(EventRefresh, s.store.Get())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Uptime:    time.Since(s.startTime).String(),
		},
	})
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: s.store.Get()})
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("stream upgrade failed: %v", err)
		return
	}
	initial := StreamEvent{Type: EventState, Payload: s.store.Get(), Timestamp: time.Now()}
	s.hub.serve(conn, initial)
}
