package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/usecase"
)

type speakResponse struct {
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Status    int              `json:"status"`
	Locality  string           `json:"locality"`
	StateName string           `json:"stateName"`
	SpeechURL string           `json:"speechUrl"`
	Thumbnail string           `json:"thumbnail,omitempty"`
	PageURL   string           `json:"pageUrl"`
	Sections  []domain.Segment `json:"sections"`
	CacheHit  bool             `json:"cacheHit"`
}

type errorResponse struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Status    int     `json:"status"`
	Error     string  `json:"error"`
}

func (r *Router) handleSpeak(c *gin.Context) {
	latitude, err := parseCoordinate(c.Param("latitude"), 90)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Status: http.StatusBadRequest, Error: "invalid latitude: " + err.Error()})
		return
	}
	longitude, err := parseCoordinate(c.Param("longitude"), 180)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Status: http.StatusBadRequest, Error: "invalid longitude: " + err.Error()})
		return
	}

	result, err := r.speaker.Speak(c.Request.Context(), usecase.SpeakRequest{
		InstanceID: c.Param("instanceId"),
		VoiceID:    c.Param("voiceId"),
		Latitude:   latitude,
		Longitude:  longitude,
	})
	if err != nil {
		status, message := errorStatus(err)
		r.logger.Warn("speak failed", "status", status, "error", err)
		if status >= http.StatusInternalServerError {
			captureError(c.Request, err, message)
		}
		c.JSON(status, errorResponse{Latitude: latitude, Longitude: longitude, Status: status, Error: message})
		return
	}

	c.JSON(http.StatusOK, speakResponse{
		Latitude:  latitude,
		Longitude: longitude,
		Status:    http.StatusOK,
		Locality:  result.Locality,
		StateName: result.StateName,
		SpeechURL: result.SpeechURL,
		Thumbnail: result.Thumbnail,
		PageURL:   result.PageURL,
		Sections:  result.Sections,
		CacheHit:  result.CacheHit,
	})
}

func parseCoordinate(raw string, limit float64) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if math.IsNaN(value) || math.Abs(value) > limit {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	return value, nil
}

// errorStatus returns what the client sees. Causes stay in logs and Sentry.
func errorStatus(err error) (int, string) {
	var perr *usecase.PipelineError
	if errors.As(err, &perr) {
		status := perr.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return status, perr.Message
	}
	return http.StatusInternalServerError, "internal server error"
}
