package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

const maxBodyBytes = 8 << 20

// Options configures a Server. Generator is required.
type Options struct {
	Generator   *persona.Generator
	Clock       persona.Clock
	Logger      *slog.Logger
	MinMessages int
	Profile     persona.ProfileOptions

	// CORSOrigins lists the browser origins allowed to call the API. Empty allows any origin.
	CORSOrigins []string
}

// Server exposes the persona operations over HTTP.
type Server struct {
	gen         *persona.Generator
	clock       persona.Clock
	logger      *slog.Logger
	minMessages int
	profileOpts persona.ProfileOptions
	corsConfig  cors.Config
}

func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("server.New: generator is nil")
	}
	s := &Server{
		gen:         opts.Generator,
		clock:       opts.Clock,
		logger:      opts.Logger,
		minMessages: opts.MinMessages,
		profileOpts: opts.Profile,
		corsConfig:  corsConfig(opts.CORSOrigins),
	}
	if err := s.corsConfig.Validate(); err != nil {
		return nil, fmt.Errorf("server.New: cors: %w", err)
	}
	if s.clock == nil {
		s.clock = persona.SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.minMessages <= 0 {
		s.minMessages = persona.MinTrainingMessages
	}
	return s, nil
}

// Handler returns the gin engine serving the /api routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), cors.New(s.corsConfig), s.requestLogger())

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.POST("/ai/train", s.train)
	api.POST("/ai/generate", s.generate)
	api.POST("/ai/active-message", s.activeMessage)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("server_start", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server_stop", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) train(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	msgs, err := persona.DecodeMessages(c.Request.Context(), body, persona.HistoryOptions{})
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if usable := countUsable(msgs); usable < s.minMessages {
		fail(c, http.StatusUnprocessableEntity, fmt.Errorf("%w: have %d, need %d", persona.ErrInsufficientHistory, usable, s.minMessages))
		return
	}
	profile := persona.BuildProfileWithOptions(msgs, s.profileOpts)
	s.logger.Info("profile_trained",
		"messages", len(msgs),
		"style", string(profile.CommunicationStyle),
		"tone", string(profile.EmotionalTone),
		"memories", len(profile.Memories),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "personality": profile})
}

type generateRequest struct {
	Message             string          `json:"message"`
	ConversationHistory json.RawMessage `json:"conversationHistory"`
	Personality         json.RawMessage `json:"personality"`
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, errors.New("message is required"))
		return
	}
	profile, err := decodePersonality(req.Personality)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	var history []persona.Message
	if raw := bytes.TrimSpace(req.ConversationHistory); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		history, err = persona.DecodeMessages(c.Request.Context(), bytes.NewReader(raw), persona.HistoryOptions{})
		if err != nil {
			fail(c, http.StatusBadRequest, fmt.Errorf("conversationHistory: %w", err))
			return
		}
	}

	reply := s.gen.GenerateReply(c.Request.Context(), req.Message, history, profile)
	c.JSON(http.StatusOK, gin.H{"success": true, "response": reply})
}

type activeMessageRequest struct {
	Personality json.RawMessage `json:"personality"`
}

func (s *Server) activeMessage(c *gin.Context) {
	var req activeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	profile, err := decodePersonality(req.Personality)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	msg := s.gen.GenerateProactiveMessage(profile, s.clock.Now())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// decodePersonality applies the same strict decoding as profile files.
func decodePersonality(raw json.RawMessage) (persona.PersonalityProfile, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return persona.PersonalityProfile{}, errors.New("personality is required")
	}
	p, err := persona.DecodeProfile(bytes.NewReader(raw))
	if err != nil {
		return persona.PersonalityProfile{}, fmt.Errorf("personality: %w", err)
	}
	return p, nil
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func countUsable(msgs []persona.Message) int {
	n := 0
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) != "" {
			n++
		}
	}
	return n
}
