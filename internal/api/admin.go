package api

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/report"
)

const (
	pdfContentType  = "application/pdf"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) adminLogin(c *gin.Context) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Passcode == "" {
		badRequest(c, "passcode is required")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Passcode), []byte(s.cfg.AdminPasscode)) != 1 {
		s.log.Warn("admin login rejected", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid passcode"})
		return
	}
	tok, err := s.signer.IssueAdmin(s.cfg.AdminTTL)
	if err != nil {
		s.writeError(c, fmt.Errorf("issue admin token: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok.Value, "expires_at": tok.ExpiresAt.Unix()})
}

func (s *Server) listPublicWorkers(c *gin.Context) {
	workers, err := s.att.Workers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]attendance.Worker, 0, len(workers))
	for _, w := range workers {
		out = append(out, w.Public())
	}
	c.JSON(http.StatusOK, gin.H{"workers": out})
}

func (s *Server) listWorkers(c *gin.Context) {
	workers, err := s.att.Workers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if workers == nil {
		workers = []attendance.Worker{}
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}

func (s *Server) getWorker(c *gin.Context) {
	w, err := s.att.Worker(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) createWorker(c *gin.Context) {
	var w attendance.Worker
	if err := c.ShouldBindJSON(&w); err != nil {
		badRequest(c, "invalid worker payload")
		return
	}
	created, err := s.att.AddWorker(c.Request.Context(), w)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateWorker(c *gin.Context) {
	var w attendance.Worker
	if err := c.ShouldBindJSON(&w); err != nil {
		badRequest(c, "invalid worker payload")
		return
	}
	w.ID = c.Param("id")
	if err := s.att.UpdateWorker(c.Request.Context(), w); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) deleteWorker(c *gin.Context) {
	if err := s.att.DeleteWorker(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getLocation(c *gin.Context) {
	loc, err := s.att.CenterLocation(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": loc.Configured(), "location": loc})
}

func (s *Server) setLocation(c *gin.Context) {
	var req struct {
		Lat    *float64 `json:"lat"`
		Lon    *float64 `json:"lon"`
		Radius *float64 `json:"radius"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid location payload")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		badRequest(c, "lat and lon are required")
		return
	}
	loc, err := s.att.SetCenterLocation(c.Request.Context(), *req.Lat, *req.Lon, req.Radius)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (s *Server) listRecords(c *gin.Context) {
	recs, err := s.att.Records(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if day := c.Query("date"); day != "" {
		d, err := time.ParseInLocation("2006-01-02", day, time.Local)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		filtered := recs[:0]
		for _, r := range recs {
			if y, m, dd := r.Timestamp.In(time.Local).Date(); y == d.Year() && m == d.Month() && dd == d.Day() {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) getRecord(c *gin.Context) {
	rec, err := s.att.Record(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func attachment(c *gin.Context, ext string) {
	name := fmt.Sprintf("attendance_report_%s.%s", time.Now().Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func (s *Server) reportPDF(c *gin.Context) {
	data, err := s.reports.PDF(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	attachment(c, "pdf")
	c.Data(http.StatusOK, pdfContentType, data)
}

func (s *Server) reportXLSX(c *gin.Context) {
	recs, err := s.att.Records(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.XLSX(&buf, recs, report.Options{Centre: s.cfg.CentreName}); err != nil {
		s.writeError(c, err)
		return
	}
	attachment(c, "xlsx")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) qrImage(c *gin.Context) {
	size := 400
	if v := c.Query("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 64 || parsed > 2048 {
			badRequest(c, "size must be between 64 and 2048")
			return
		}
		size = parsed
	}
	png, err := report.QRCode(s.verifier.Token(), size)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
