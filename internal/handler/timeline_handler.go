package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/records-timeline-go/internal/models"
	"github.com/jengzang/records-timeline-go/internal/repository"
	"github.com/jengzang/records-timeline-go/internal/service"
	"github.com/jengzang/records-timeline-go/pkg/response"
)

// maxBatchSize bounds the points accepted by one ingestion request
const maxBatchSize = 10000

// TimelineHandler handles HTTP requests for the timeline
type TimelineHandler struct {
	service *service.TimelineService
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(service *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{service: service}
}

// pointRequest is one sample in an ingestion body
type pointRequest struct {
	Timestamp *time.Time `json:"timestamp" binding:"required"`
	Latitude  *float64   `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64   `json:"longitude" binding:"required,min=-180,max=180"`
	Speed     float64    `json:"speed" binding:"min=0"`
	Accuracy  float64    `json:"accuracy" binding:"min=0"`
}

type ingestRequest struct {
	Points []pointRequest `json:"points" binding:"required,min=1,dive"`
}

// IngestPoints handles POST /api/v1/users/:userId/points
func (h *TimelineHandler) IngestPoints(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		response.BadRequest(c, "Invalid request body")
		return
	}
	if len(req.Points) > maxBatchSize {
		response.BadRequest(c, "Too many points in one request")
		return
	}

	points := make([]models.GPSPoint, len(req.Points))
	for i, p := range req.Points {
		points[i] = models.GPSPoint{
			Timestamp: p.Timestamp.UTC(),
			Latitude:  *p.Latitude,
			Longitude: *p.Longitude,
			Speed:     p.Speed,
			Accuracy:  p.Accuracy,
		}
	}

	result, err := h.service.IngestPoints(c.Request.Context(), c.Param("userId"), points)
	if err != nil {
		c.Error(err)
		if errors.Is(err, service.ErrOutOfOrderBatch) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "Failed to process points")
		return
	}

	response.Success(c, result)
}

// Flush handles POST /api/v1/users/:userId/flush
func (h *TimelineHandler) Flush(c *gin.Context) {
	records, err := h.service.Flush(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		if errors.Is(err, repository.ErrStateNotFound) {
			response.NotFound(c, "No state for user")
			return
		}
		response.InternalError(c, "Failed to flush timeline")
		return
	}

	response.Success(c, gin.H{"events": records})
}

// GetTimeline handles GET /api/v1/users/:userId/timeline
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	var filter models.TimelineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(err)
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.UserID = c.Param("userId")
	filter.Type = strings.ToUpper(filter.Type)

	switch models.EventType(filter.Type) {
	case "", models.EventTypeStay, models.EventTypeTrip, models.EventTypeDataGap:
	default:
		response.BadRequest(c, "Invalid event type")
		return
	}

	result, err := h.service.GetTimeline(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		response.InternalError(c, "Failed to get timeline")
		return
	}

	response.Success(c, result)
}

// GetSummary handles GET /api/v1/users/:userId/summary
func (h *TimelineHandler) GetSummary(c *gin.Context) {
	var filter models.TimelineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(err)
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.UserID = c.Param("userId")
	filter.Type = ""

	summary, err := h.service.GetSummary(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		response.InternalError(c, "Failed to summarize timeline")
		return
	}

	response.Success(c, summary)
}

// GetPlaces handles GET /api/v1/users/:userId/places
func (h *TimelineHandler) GetPlaces(c *gin.Context) {
	var filter models.PlaceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(err)
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.UserID = c.Param("userId")

	places, err := h.service.GetPlaces(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		response.InternalError(c, "Failed to get places")
		return
	}

	response.Success(c, places)
}

// GetUserState handles GET /api/v1/users/:userId/state
func (h *TimelineHandler) GetUserState(c *gin.Context) {
	state, err := h.service.GetUserState(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		if errors.Is(err, repository.ErrStateNotFound) {
			response.NotFound(c, "No state for user")
			return
		}
		response.InternalError(c, "Failed to get user state")
		return
	}

	response.Success(c, state)
}
