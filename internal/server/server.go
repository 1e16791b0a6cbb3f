// Package server is the HTTP transport: the WhatsApp webhook plus the debug
// endpoints used during development. It owns transport concerns only —
// verification, signatures, deduplication and per-customer serialization —
// and delegates every message to the conversation engine.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lucianoherrera1000/vendobot/internal/conversation"
	"github.com/lucianoherrera1000/vendobot/internal/database"
	"github.com/lucianoherrera1000/vendobot/internal/whatsapp"
	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

// Server wires the transport to the engine and the session store.
type Server struct {
	engine *conversation.Engine
	db     *database.DB
	sender whatsapp.Sender
	log    *zap.SugaredLogger

	verifyToken string
	appSecret   string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds the server. sender may be a whatsapp.Disabled.
func New(engine *conversation.Engine, db *database.DB, sender whatsapp.Sender, verifyToken, appSecret string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		engine:      engine,
		db:          db,
		sender:      sender,
		log:         log,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Router registers all routes.
func (s *Server) Router(debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.POST("/debug/step", s.debugStep)
	r.POST("/debug/reset/:phone", s.debugReset)
	r.GET("/webhook", s.webhookVerify)
	r.POST("/webhook", s.webhookReceive)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type stepRequest struct {
	Phone      string           `json:"phone"`
	Text       string           `json:"text"`
	ForceState bool             `json:"force_state"`
	State      string           `json:"state"`
	Data       models.OrderData `json:"data"`
}

// debugStep drives the state machine directly. With force_state the caller
// supplies the (state, data) pair; otherwise the stored session is used.
func (s *Server) debugStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Phone == "" {
		req.Phone = "test"
	}

	ctx := c.Request.Context()
	var stateUsed models.State
	var res models.StepResult
	if req.ForceState {
		stateUsed = models.ParseState(req.State)
		res = s.stepForced(ctx, req.Phone, stateUsed, req.Text, req.Data)
	} else {
		var err error
		stateUsed, res, err = s.process(ctx, req.Phone, req.Text)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_used": stateUsed,
		"next_state": res.NextState,
		"data":       res.Data,
		"reply_text": res.Reply,
	})
}

func (s *Server) debugReset(c *gin.Context) {
	phone := c.Param("phone")
	existed, err := s.db.ResetSession(phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	msg := "No existía"
	if existed {
		msg = "Sesión borrada"
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "phone": phone, "message": msg})
}

// webhookVerify answers Meta's subscription challenge.
func (s *Server) webhookVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// WhatsApp Cloud API inbound payload, reduced to what we consume.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (s *Server) webhookReceive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if s.appSecret != "" && !s.validSignature(body, c.GetHeader("X-Hub-Signature-256")) {
		c.Status(http.StatusForbidden)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Malformed payloads still get a 200 so the platform stops retrying.
		s.log.Warnw("unparseable webhook payload", "error", err)
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "" && msg.Type != "text" {
					continue
				}
				s.handleInbound(ctx, msg.ID, msg.From, msg.Text.Body)
			}
		}
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleInbound(ctx context.Context, msgID, from, text string) {
	if msgID != "" {
		already, err := s.db.MarkEventProcessed(msgID)
		if err != nil {
			s.log.Warnw("dedup check failed", "message_id", msgID, "error", err)
		} else if already {
			s.log.Debugw("duplicate webhook message ignored", "message_id", msgID)
			return
		}
	}

	_, res, err := s.process(ctx, from, text)
	if err != nil {
		s.log.Errorw("session load failed", "phone", from, "error", err)
		return
	}

	if err := s.sender.SendText(ctx, from, res.Reply); err != nil {
		s.log.Warnw("outbound send failed", "phone", from, "error", err)
	}
}

// process runs load → step → save under the customer's lock, so two in-flight
// messages from the same phone cannot interleave. Saves are last-write-wins.
func (s *Server) process(ctx context.Context, phone, text string) (models.State, models.StepResult, error) {
	lock := s.customerLock(phone)
	lock.Lock()
	defer lock.Unlock()

	state, data, err := s.db.GetSession(phone)
	if err != nil {
		return state, models.StepResult{}, err
	}

	res := s.engine.Step(conversation.WithCustomerID(ctx, phone), state, text, data)
	if err := s.db.UpsertSession(phone, res.NextState, res.Data); err != nil {
		s.log.Errorw("session save failed", "phone", phone, "error", err)
	}
	return state, res, nil
}

// stepForced runs a step from a caller-supplied (state, data) pair; the debug
// endpoint uses it to poke individual transitions.
func (s *Server) stepForced(ctx context.Context, phone string, state models.State, text string, data models.OrderData) models.StepResult {
	lock := s.customerLock(phone)
	lock.Lock()
	defer lock.Unlock()

	res := s.engine.Step(conversation.WithCustomerID(ctx, phone), state, text, data)
	if err := s.db.UpsertSession(phone, res.NextState, res.Data); err != nil {
		s.log.Errorw("session save failed", "phone", phone, "error", err)
	}
	return res
}

func (s *Server) customerLock(phone string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		s.locks[phone] = l
	}
	return l
}

func (s *Server) validSignature(body []byte, header string) bool {
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header[len(prefix):]))
}
