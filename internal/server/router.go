package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/export"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rollIDParam              = "id"
	formatQuery              = "format"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingLogbookService = errors.New("logbook service dependency required")
	errMissingExporter       = errors.New("exporter dependency required")
	errIncompleteLocation    = errors.New("latitude and longitude must be provided together")
)

type RollExporter interface {
	Export(ctx context.Context, rollID logbook.RollID, format export.Format) (export.Result, error)
}

type Dependencies struct {
	Logbook           *logbook.Service
	Exporter          RollExporter
	Realtime          *RealtimeDispatcher
	Logger            *zap.Logger
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Logbook == nil {
		return nil, errMissingLogbookService
	}
	if deps.Exporter == nil {
		return nil, errMissingExporter
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		logbook:   deps.Logbook,
		exporter:  deps.Exporter,
		realtime:  realtime,
		logger:    logger,
		heartbeat: heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/rolls", handler.handleListRolls)
	router.POST("/rolls", handler.handleStartRoll)

	rolls := router.Group("/rolls/:" + rollIDParam)
	rolls.Use(handler.requireRollID)
	rolls.GET("", handler.handleGetRoll)
	rolls.POST("/end", handler.handleEndRoll)
	rolls.GET("/frames", handler.handleListFrames)
	rolls.POST("/frames", handler.handleLogFrame)
	rolls.GET("/frames/next", handler.handleNextFrameNumber)
	rolls.POST("/export", handler.handleExport)
	rolls.GET("/events", handler.handleRollEvents)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	origins := trimmedOrigins(allowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Cache-Control", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	logbook   *logbook.Service
	exporter  RollExporter
	realtime  *RealtimeDispatcher
	logger    *zap.Logger
	heartbeat time.Duration
}

type rollPayload struct {
	RollID    string  `json:"roll_id"`
	FilmStock string  `json:"film_stock"`
	ISO       int     `json:"iso"`
	Camera    string  `json:"camera"`
	Lens      string  `json:"lens"`
	Notes     *string `json:"notes,omitempty"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time,omitempty"`
	Active    bool    `json:"active"`
}

type framePayload struct {
	RollID          string   `json:"roll_id"`
	FrameNumber     int      `json:"frame_number"`
	Shutter         *string  `json:"shutter,omitempty"`
	Aperture        *string  `json:"aperture,omitempty"`
	FocalLength     *int     `json:"focal_length,omitempty"`
	ExposureComp    *string  `json:"exposure_comp,omitempty"`
	Timestamp       string   `json:"timestamp"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	WeatherSummary  *string  `json:"weather_summary,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	VoiceNoteRaw    *string  `json:"voice_note_raw,omitempty"`
	VoiceNoteParsed *string  `json:"voice_note_parsed,omitempty"`
	Keywords        []string `json:"keywords"`
}

type startRollRequest struct {
	FilmStock string `json:"film_stock"`
	ISO       int    `json:"iso"`
	Camera    string `json:"camera"`
	Lens      string `json:"lens"`
	Notes     string `json:"notes"`
}

type logFrameRequest struct {
	CapturedAt      *time.Time `json:"captured_at"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	VoiceTranscript string     `json:"voice_transcript"`
	Keywords        []string   `json:"keywords"`
	KeywordText     string     `json:"keyword_text"`
	Shutter         string     `json:"shutter"`
	Aperture        string     `json:"aperture"`
	FocalLength     *int       `json:"focal_length"`
	ExposureComp    string     `json:"exposure_comp"`
	WeatherSummary  string     `json:"weather_summary"`
	TemperatureC    *float64   `json:"temperature_c"`
}

type exportResponse struct {
	Path         string `json:"path"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	Frames       int    `json:"frames"`
	ArchiveKey   string `json:"archive_key,omitempty"`
	ArchiveError string `json:"archive_error,omitempty"`
}

type realtimeEventPayload struct {
	RollID      string `json:"rollId"`
	FrameNumber int    `json:"frameNumber,omitempty"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	status := h.logbook.Status()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage_available": status.Available})
}

func (h *httpHandler) handleListRolls(c *gin.Context) {
	rolls, err := h.logbook.Rolls().FetchRolls(c.Request.Context())
	if err != nil && !errors.Is(err, logbook.ErrStorageUnavailable) {
		h.respondError(c, err)
		return
	}
	payload := make([]rollPayload, 0, len(rolls))
	for _, roll := range rolls {
		payload = append(payload, toRollPayload(roll))
	}
	c.JSON(http.StatusOK, gin.H{"rolls": payload, "storage_available": err == nil})
}

func (h *httpHandler) handleStartRoll(c *gin.Context) {
	var request startRollRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	roll, err := h.logbook.StartRoll(c.Request.Context(), logbook.RollDraft{
		FilmStock: request.FilmStock,
		ISO:       request.ISO,
		Camera:    request.Camera,
		Lens:      request.Lens,
		Notes:     request.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.Publish(RealtimeMessage{RollID: roll.ID.String(), EventType: RealtimeEventRollStarted, Timestamp: roll.StartTime})
	c.JSON(http.StatusCreated, toRollPayload(roll))
}

func (h *httpHandler) handleGetRoll(c *gin.Context) {
	rollID := rollIDFromContext(c)
	roll, found, err := h.logbook.Rolls().FetchRoll(c.Request.Context(), rollID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "roll_not_found"})
		return
	}
	c.JSON(http.StatusOK, toRollPayload(roll))
}

func (h *httpHandler) handleEndRoll(c *gin.Context) {
	rollID := rollIDFromContext(c)
	ended, err := h.logbook.EndRoll(c.Request.Context(), rollID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ended {
		c.JSON(http.StatusNotFound, gin.H{"error": "roll_not_found"})
		return
	}
	roll, found, err := h.logbook.Rolls().FetchRoll(c.Request.Context(), rollID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "roll_not_found"})
		return
	}
	endedAt := time.Now()
	if roll.EndTime != nil {
		endedAt = *roll.EndTime
	}
	h.realtime.Publish(RealtimeMessage{RollID: rollID.String(), EventType: RealtimeEventRollEnded, Timestamp: endedAt})
	c.JSON(http.StatusOK, toRollPayload(roll))
}

func (h *httpHandler) handleListFrames(c *gin.Context) {
	frames, err := h.logbook.Frames().FetchFrames(c.Request.Context(), rollIDFromContext(c))
	if err != nil && !errors.Is(err, logbook.ErrStorageUnavailable) {
		h.respondError(c, err)
		return
	}
	payload := make([]framePayload, 0, len(frames))
	for _, frame := range frames {
		payload = append(payload, toFramePayload(frame))
	}
	c.JSON(http.StatusOK, gin.H{"frames": payload, "storage_available": err == nil})
}

func (h *httpHandler) handleLogFrame(c *gin.Context) {
	rollID := rollIDFromContext(c)
	var request logFrameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if (request.Latitude == nil) != (request.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": errIncompleteLocation.Error()})
		return
	}

	_, found, err := h.logbook.Rolls().FetchRoll(c.Request.Context(), rollID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "roll_not_found"})
		return
	}

	capture := logbook.FrameCapture{
		VoiceTranscript: request.VoiceTranscript,
		Keywords:        append(append([]string{}, request.Keywords...), codec.ParseKeywordInput(request.KeywordText)...),
		Shutter:         request.Shutter,
		Aperture:        request.Aperture,
		FocalLength:     request.FocalLength,
		ExposureComp:    request.ExposureComp,
		WeatherSummary:  request.WeatherSummary,
		TemperatureC:    request.TemperatureC,
	}
	if request.CapturedAt != nil {
		capture.CapturedAt = *request.CapturedAt
	}
	if request.Latitude != nil {
		capture.Location = &logbook.LocationFix{Latitude: *request.Latitude, Longitude: *request.Longitude}
	}

	frame, err := h.logbook.LogFrame(c.Request.Context(), rollID, capture)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.Publish(RealtimeMessage{
		RollID:      rollID.String(),
		EventType:   RealtimeEventFrameLogged,
		FrameNumber: frame.FrameNumber,
		Timestamp:   frame.Timestamp,
	})
	c.JSON(http.StatusCreated, toFramePayload(frame))
}

func (h *httpHandler) handleNextFrameNumber(c *gin.Context) {
	next, err := h.logbook.Frames().NextFrameNumber(c.Request.Context(), rollIDFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_frame_number": next})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery(formatQuery, string(export.FormatJSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_format"})
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), rollIDFromContext(c), format)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := exportResponse{
		Path:       result.Path,
		Filename:   result.Filename,
		Format:     string(result.Format),
		Frames:     result.Frames,
		ArchiveKey: result.ArchiveKey,
	}
	if result.ArchiveErr != nil {
		response.ArchiveError = result.ArchiveErr.Error()
	}
	c.JSON(http.StatusCreated, response)
}

func (h *httpHandler) handleRollEvents(c *gin.Context) {
	rollID := rollIDFromContext(c)
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, rollID.String())
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				RollID:      message.RollID,
				FrameNumber: message.FrameNumber,
				Timestamp:   message.Timestamp.UTC().Format(time.RFC3339),
				Source:      realtimeSourceBackend,
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, realtimeEventPayload{
				RollID:    rollID.String(),
				Timestamp: tick.UTC().Format(time.RFC3339),
				Source:    realtimeSourceBackend,
			})
			return true
		}
	})
}

func (h *httpHandler) requireRollID(c *gin.Context) {
	rollID, err := logbook.NewRollID(c.Param(rollIDParam))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_roll_id"})
		return
	}
	c.Set(rollIDParam, rollID)
	c.Next()
}

func rollIDFromContext(c *gin.Context) logbook.RollID {
	value, _ := c.Get(rollIDParam)
	rollID, _ := value.(logbook.RollID)
	return rollID
}

type codedError interface {
	Code() string
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, reason := classifyError(err)
	body := gin.H{"error": reason}
	var coded codedError
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, logbook.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, logbook.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, logbook.ErrConstraintViolation):
		return http.StatusConflict, "constraint_violation"
	case errors.Is(err, export.ErrRollNotFound):
		return http.StatusNotFound, "roll_not_found"
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, export.ErrEncodingFailure):
		return http.StatusInternalServerError, "export_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func toRollPayload(roll logbook.Roll) rollPayload {
	payload := rollPayload{
		RollID:    roll.ID.String(),
		FilmStock: roll.FilmStock,
		ISO:       roll.ISO,
		Camera:    roll.Camera,
		Lens:      roll.Lens,
		Notes:     roll.Notes,
		StartTime: roll.StartTime.Format(time.RFC3339),
		Active:    roll.IsActive(),
	}
	if roll.EndTime != nil {
		formatted := roll.EndTime.Format(time.RFC3339)
		payload.EndTime = &formatted
	}
	return payload
}

func toFramePayload(frame logbook.Frame) framePayload {
	keywords := frame.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return framePayload{
		RollID:          frame.RollID.String(),
		FrameNumber:     frame.FrameNumber,
		Shutter:         frame.Shutter,
		Aperture:        frame.Aperture,
		FocalLength:     frame.FocalLength,
		ExposureComp:    frame.ExposureComp,
		Timestamp:       frame.Timestamp.Format(time.RFC3339),
		Latitude:        frame.Latitude,
		Longitude:       frame.Longitude,
		WeatherSummary:  frame.WeatherSummary,
		TemperatureC:    frame.TemperatureC,
		VoiceNoteRaw:    frame.VoiceNoteRaw,
		VoiceNoteParsed: frame.VoiceNoteParsed,
		Keywords:        keywords,
	}
}

// trimmedOrigins drops blank entries from a configured origin list.
func trimmedOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
