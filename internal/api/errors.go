package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/checkin"
	"communitycentre/internal/report"
)

// writeError maps domain errors onto HTTP responses. Unknown errors are logged and
// reported as 500 without detail.
func (s *Server) writeError(c *gin.Context, err error) {
	if fail, ok := checkin.AsFailure(err); ok {
		c.JSON(failureStatus(fail.Reason), failureBody(fail))
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attendance.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrInvalidPIN):
		status = http.StatusUnauthorized
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, report.ErrNoRecords):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrPINTaken):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func failureStatus(r checkin.Reason) int {
	switch r {
	case checkin.ReasonInvalidToken:
		return http.StatusBadRequest
	case checkin.ReasonTooFar:
		return http.StatusForbidden
	case checkin.ReasonCenterNotSet:
		return http.StatusConflict
	case checkin.ReasonStoreFailed:
		return http.StatusInternalServerError
	case checkin.ReasonCancelled:
		return http.StatusRequestTimeout
	}
	return http.StatusUnprocessableEntity
}

func failureBody(f *checkin.Failure) gin.H {
	body := gin.H{"error": f.Message, "reason": f.Reason}
	if f.Reason == checkin.ReasonTooFar {
		body["distance"] = f.Distance
		body["radius"] = f.Radius
	}
	return body
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
