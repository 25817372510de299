package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/auth"
	"communitycentre/internal/checkin"
	"communitycentre/internal/geo"
	"communitycentre/internal/queue"
)

// checkinRequest is what a client reports after sampling its camera and position.
// CameraError and GeoError carry the platform failure when sampling did not succeed.
type checkinRequest struct {
	Decoded     string     `json:"decoded"`
	Position    *geo.Point `json:"position"`
	CameraError string     `json:"camera_error"`
	GeoError    string     `json:"geo_error"`
}

func cameraError(kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
		return nil
	case "denied", "notallowederror", "permission_denied":
		return checkin.ErrCameraDenied
	case "not_found", "notfounderror":
		return checkin.ErrCameraNotFound
	}
	return errors.New(kind)
}

func geoError(kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
		return nil
	case "unsupported":
		return checkin.ErrGeoUnsupported
	case "denied", "permission_denied":
		return checkin.ErrGeoDenied
	case "timeout":
		return checkin.ErrGeoTimeout
	case "unavailable", "position_unavailable":
		return checkin.ErrGeoUnavailable
	}
	return fmt.Errorf("%w: %s", checkin.ErrGeoUnavailable, kind)
}

func (s *Server) checkinOptions(c *gin.Context) {
	opts := checkin.DefaultScanOptions
	c.JSON(http.StatusOK, gin.H{
		"scan": gin.H{"fps": opts.FPS, "qrbox": opts.BoxSize, "facing_mode": opts.FacingMode},
		"geolocation": gin.H{
			"enable_high_accuracy": true,
			"timeout_ms":           s.cfg.LocateTimeout.Milliseconds(),
			"maximum_age_ms":       0,
		},
	})
}

// checkin runs one attempt of the check-in flow on the reported samples and, when
// admitted, returns a short-lived pass for the attendance form.
func (s *Server) checkin(c *gin.Context) {
	var req checkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid check-in payload")
		return
	}

	camera := &checkin.ReportedCamera{Decoded: req.Decoded, OpenErr: cameraError(req.CameraError)}
	var locator checkin.Locator
	if geoErr := geoError(req.GeoError); geoErr != nil || req.Position != nil {
		locator = &checkin.ReportedLocator{Position: req.Position, Err: geoErr}
	}

	flow := checkin.NewFlow(s.verifier, s.gate, checkin.Devices{Camera: camera, Locator: locator}, s.log)
	flow.OnTransition(func(_, to checkin.Phase) {
		s.metrics.Phases.WithLabelValues(string(to)).Inc()
	})

	decision, err := flow.Run(c.Request.Context())
	if err != nil {
		fail, ok := checkin.AsFailure(err)
		if !ok {
			s.writeError(c, err)
			return
		}
		s.metrics.CheckinOutcomes.WithLabelValues(string(fail.Reason)).Inc()
		if fail.Reason == checkin.ReasonTooFar {
			s.metrics.CheckinDistance.Observe(fail.Distance)
		}
		s.writeError(c, fail)
		return
	}
	s.metrics.CheckinOutcomes.WithLabelValues("admitted").Inc()
	s.metrics.CheckinDistance.Observe(decision.Distance)

	pass, err := s.signer.IssuePass(decision.Distance, s.cfg.PassTTL)
	if err != nil {
		s.writeError(c, fmt.Errorf("issue pass: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pass":       pass.Value,
		"expires_at": pass.ExpiresAt.Unix(),
		"distance":   decision.Distance,
		"radius":     decision.Center.Radius,
	})
}

func (s *Server) submitAttendance(c *gin.Context) {
	var req attendance.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid attendance payload")
		return
	}

	rec, duplicate, err := s.att.Submit(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidPIN):
			s.metrics.Recorded.WithLabelValues("invalid_pin").Inc()
		case errors.Is(err, attendance.ErrValidation):
			s.metrics.Recorded.WithLabelValues("invalid").Inc()
		default:
			s.metrics.Recorded.WithLabelValues("error").Inc()
		}
		s.writeError(c, err)
		return
	}
	if duplicate {
		s.metrics.Recorded.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"record": rec, "duplicate": true})
		return
	}
	s.metrics.Recorded.WithLabelValues("created").Inc()

	if claims, ok := c.Get(auth.ClaimsKey); ok {
		if cl, ok := claims.(auth.Claims); ok {
			s.log.Debug("attendance under pass", zap.String("record_id", rec.ID), zap.Float64("distance_m", cl.Distance))
		}
	}
	if err := s.reports.Invalidate(c.Request.Context()); err != nil {
		s.log.Warn("report cache invalidate failed", zap.String("record_id", rec.ID), zap.Error(err))
	}
	s.publishRecorded(c, rec)
	c.JSON(http.StatusCreated, gin.H{"record": rec, "duplicate": false})
}

func (s *Server) publishRecorded(c *gin.Context, rec attendance.Record) {
	if s.queue == nil {
		return
	}
	msg, err := queue.NewMessage(queue.TypeAttendanceRecorded, queue.Recorded{
		RecordID: rec.ID,
		WorkerID: rec.WorkerID,
		At:       rec.Timestamp,
	})
	if err == nil {
		err = s.queue.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		s.log.Warn("queue publish failed", zap.String("record_id", rec.ID), zap.Error(err))
	}
}
