package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/factengine/factengine/internal/ids"
	"github.com/factengine/factengine/internal/logging"
)

// session is one connected SSE client: its event channel and the done
// signal that tears it down when the client disconnects.
type session struct {
	events chan []byte
	done   chan struct{}
}

// SSEServer is the server-sent-events HTTP transport: it carries the same
// JSON-RPC request handling as the stdio Server but delivers responses as
// SSE events instead of newline-delimited stdout, generalizing the
// teacher's internal/api/server.go gin+cors setup (CORS branching,
// graceful shutdown via http.Server.Shutdown) to a single-purpose
// JSON-RPC relay with three routes instead of a REST resource tree.
type SSEServer struct {
	mcp        *Server
	router     *gin.Engine
	httpServer *http.Server
	log        *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session

	host string
	port int
}

// NewSSEServer creates an SSE transport wrapping mcpServer, listening on
// host:port. If corsEnabled is true, permissive CORS allowing every
// origin is enabled; this transport carries no authentication of its own, matching
// the teacher's no-API-key CORS branch.
func NewSSEServer(mcpServer *Server, host string, port int, corsEnabled bool) *SSEServer {
	log := logging.GetLogger("mcp-sse")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if corsEnabled {
		router.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			MaxAge:          12 * time.Hour,
		}))
	}

	s := &SSEServer{
		mcp:      mcpServer,
		router:   router,
		log:      log,
		sessions: make(map[string]*session),
		host:     host,
		port:     port,
	}
	s.setupRoutes()
	return s
}

func (s *SSEServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/sse", s.handleSSE)
	s.router.POST("/messages", s.handleMessages)
}

func (s *SSEServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleSSE opens a new session and streams its events until the client
// disconnects or the request context is cancelled.
func (s *SSEServer) handleSSE(c *gin.Context) {
	sessionID := ids.New()
	sess := &session{
		events: make(chan []byte, 16),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		close(sess.done)
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	fmt.Fprintf(c.Writer, "event: endpoint\ndata: /messages?sessionId=%s\n\n", sessionID)
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case data, ok := <-sess.events:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: message\ndata: %s\n\n", data)
			c.Writer.Flush()
		}
	}
}

// handleMessages accepts one JSON-RPC request for an open session and
// delivers the response over that session's SSE stream.
func (s *SSEServer) handleMessages(c *gin.Context) {
	sessionID := c.Query("sessionId")

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := s.mcp.handleRequest(c.Request.Context(), string(raw))
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})

	if resp == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal sse response", "error", err)
		return
	}
	select {
	case sess.events <- data:
	case <-sess.done:
	}
}

// Start runs the SSE server until ctx is cancelled, then shuts it down
// gracefully.
func (s *SSEServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting MCP SSE server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("sse server error: %w", err)
	}
}
