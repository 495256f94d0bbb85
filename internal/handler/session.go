package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video_consultation/internal/middleware"
	"video_consultation/internal/service"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// SentinelParticipantID admits whoever is currently waiting. It only
// resolves when exactly one entry exists.
const SentinelParticipantID = "auto"

type SessionHandler struct {
	sessionService service.SessionService
	log            logger.Logger
}

func NewSessionHandler(sessionService service.SessionService, log logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log,
	}
}

func (h *SessionHandler) Create(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), appointmentID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) Get(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), appointmentID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type JoinWaitingRoomRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *SessionHandler) JoinWaitingRoom(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	var req JoinWaitingRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session, entry, err := h.sessionService.JoinWaitingRoom(c.Request.Context(), appointmentID, caller, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}

	if entry == nil {
		// Already admitted: report current session state instead of an error.
		c.JSON(http.StatusOK, gin.H{"admitted": true, "session": session})
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *SessionHandler) ListWaiting(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	entries, err := h.sessionService.ListWaiting(c.Request.Context(), appointmentID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type AdmitRequest struct {
	ParticipantID string `json:"participant_id"`
}

func (h *SessionHandler) Admit(c *gin.Context) {
	h.decide(c, h.sessionService.Admit)
}

func (h *SessionHandler) Reject(c *gin.Context) {
	h.decide(c, h.sessionService.Reject)
}

func (h *SessionHandler) decide(c *gin.Context, op service.AdmissionFunc) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	var req AdmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	participantID := uuid.Nil
	if req.ParticipantID != "" && req.ParticipantID != SentinelParticipantID {
		participantID, err = uuid.Parse(req.ParticipantID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant ID"})
			return
		}
	}

	session, err := op(c.Request.Context(), appointmentID, participantID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) ToggleScreenShare(c *gin.Context) {
	caller, ok := middleware.CallerIdentity(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	appointmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return
	}

	state, err := h.sessionService.ToggleScreenShare(c.Request.Context(), appointmentID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
}
