// Package devserver implements a small development backend speaking the
// experiment HTTP protocol over a canned round script. It exists for local
// play and end-to-end testing; it is not the production backend.
package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

var log = logging.Component("devserver")

// Batch is one next_round response: raw round actions served verbatim.
type Batch []json.RawMessage

// Server holds the canned script and per-session progress.
type Server struct {
	script []Batch

	mu        sync.Mutex
	nextID    int
	sessions  map[int]*session
	token     string
	results   []map[string]any
	finalized map[int]bool
}

type session struct {
	id       int
	batchIdx int
}

// New returns a Server serving the given script. With no batches the
// default demo script is used.
func New(script ...Batch) *Server {
	if len(script) == 0 {
		script = DemoScript()
	}
	return &Server{
		script:    script,
		nextID:    1,
		sessions:  make(map[int]*session),
		token:     uuid.NewString(),
		finalized: make(map[int]bool),
	}
}

// Results returns every submitted result payload, for tests.
func (s *Server) Results() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.results))
	copy(out, s.results)
	return out
}

// Finalized reports whether the given session was finalized.
func (s *Server) Finalized(sessionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized[sessionID]
}

// Router builds the gin engine with the experiment protocol routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	r.GET("/participant/", s.handleParticipant)
	r.POST("/session/create/", s.handleCreateSession)
	r.GET("/session/:id/next_round/", s.handleNextRound)
	r.POST("/session/:id/finalize/", s.handleFinalize)
	r.POST("/result/score/", s.handleResult)
	r.POST("/result/intermediate_score/", s.handleIntermediateScore)
	r.GET("/media/*path", s.handleMedia)
	return r
}

func (s *Server) handleParticipant(c *gin.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	hash := c.Query("participant_id")
	if hash == "" {
		hash = uuid.NewString()
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         1,
		"hash":       hash,
		"csrf_token": token,
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	s.mu.Lock()
	sess := &session{id: s.nextID}
	s.nextID++
	s.sessions[sess.id] = sess
	batch := s.popBatch(sess)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"session":    gin.H{"id": sess.id},
		"next_round": batch,
	})
}

func (s *Server) handleNextRound(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad session id"})
		return
	}

	s.mu.Lock()
	sess := s.sessions[id]
	if sess == nil {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	batch := s.popBatch(sess)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"next_round": batch})
}

func (s *Server) handleResult(c *gin.Context) {
	raw := c.PostForm("json_data")
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json_data"})
		return
	}
	id, _ := strconv.Atoi(c.PostForm("session_id"))

	s.mu.Lock()
	s.results = append(s.results, payload)
	sess := s.sessions[id]
	var batch Batch
	if sess != nil {
		batch = s.popBatch(sess)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"next_round": batch})
}

// handleIntermediateScore scores a matching pairs turn: cards of the same
// group are a match.
func (s *Server) handleIntermediateScore(c *gin.Context) {
	var payload struct {
		First  struct{ Group string `json:"group"` } `json:"first_card"`
		Second struct{ Group string `json:"group"` } `json:"second_card"`
	}
	if err := json.Unmarshal([]byte(c.PostForm("json_data")), &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json_data"})
		return
	}

	score := 0
	if payload.First.Group != "" && payload.First.Group == payload.Second.Group {
		score = 20
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

func (s *Server) handleFinalize(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad session id"})
		return
	}
	s.mu.Lock()
	s.finalized[id] = true
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

// handleMedia serves a short placeholder body for any section URL so
// no-audio preloads have something to fetch.
func (s *Server) handleMedia(c *gin.Context) {
	c.Data(http.StatusOK, "audio/mpeg", []byte{0xff, 0xfb, 0x90, 0x00})
}

// popBatch returns the session's next script batch, empty once exhausted.
// Callers hold s.mu.
func (s *Server) popBatch(sess *session) Batch {
	if sess.batchIdx >= len(s.script) {
		return Batch{}
	}
	batch := s.script[sess.batchIdx]
	sess.batchIdx++
	return batch
}
