package main

import (
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

// Indian mobile numbers in E.164 form
var whatsappNumber = regexp.MustCompile(`^\+91[6-9][0-9]{9}$`)

type SendMessageRequest struct {
	Reference string `json:"reference"`
	To        string `json:"to" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type SendMessageResponse struct {
	ID         string         `json:"id"`
	Reference  string         `json:"reference"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	AcceptedAt time.Time      `json:"accepted_at"`
}

// Channel fakes a WhatsApp business API. Accepted messages are kept in
// memory so they can be looked up again.
type Channel struct {
	token    string
	failRate float64
	rng      *rand.Rand

	mu       sync.Mutex
	messages map[string]SendMessageResponse
}

func NewChannel(token string, failRate float64) *Channel {
	return &Channel{
		token:    token,
		failRate: failRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		messages: make(map[string]SendMessageResponse),
	}
}

func (ch *Channel) shouldFail() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.rng.Float64() < ch.failRate
}

func (ch *Channel) authorize(c *gin.Context) {
	if ch.token == "" {
		c.Next()
		return
	}
	if strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ") != ch.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Next()
}

func (ch *Channel) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if ch.shouldFail() {
		log.Warn().Str("reference", req.Reference).Msg("simulated outage")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "channel temporarily unavailable"})
		return
	}

	resp := SendMessageResponse{
		ID:         "wamid." + uuid.New().String(),
		Reference:  req.Reference,
		AcceptedAt: time.Now().UTC(),
	}
	if !whatsappNumber.MatchString(req.To) {
		resp.Status = StatusRejected
		resp.Error = "not a whatsapp number"
		log.Warn().Str("reference", req.Reference).Str("to", req.To).Msg("message rejected")
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	resp.Status = StatusAccepted
	ch.mu.Lock()
	ch.messages[resp.ID] = resp
	ch.mu.Unlock()

	log.Info().
		Str("id", resp.ID).
		Str("reference", req.Reference).
		Str("to", req.To).
		Int("length", len(req.Text)).
		Msg("message accepted")
	c.JSON(http.StatusAccepted, resp)
}

func (ch *Channel) GetMessage(c *gin.Context) {
	ch.mu.Lock()
	msg, ok := ch.messages[c.Param("id")]
	ch.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UpdateConfig changes the simulated failure rate at runtime.
func (ch *Channel) UpdateConfig(c *gin.Context) {
	var body struct {
		FailRate *float64 `json:"fail_rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.FailRate == nil || *body.FailRate < 0 || *body.FailRate > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fail_rate must be between 0 and 1"})
		return
	}

	ch.mu.Lock()
	ch.failRate = *body.FailRate
	ch.mu.Unlock()
	log.Info().Float64("fail_rate", *body.FailRate).Msg("updated fail rate")

	c.JSON(http.StatusOK, gin.H{"fail_rate": *body.FailRate})
}

func SetupRouter(ch *Channel) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	v1 := router.Group("/v1", ch.authorize)
	{
		v1.POST("/messages", ch.SendMessage)
		v1.GET("/messages/:id", ch.GetMessage)
		v1.PUT("/config", ch.UpdateConfig)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	return router
}
