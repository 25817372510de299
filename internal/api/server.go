package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/auth"
	"communitycentre/internal/checkin"
	"communitycentre/internal/config"
	"communitycentre/internal/httpmiddleware"
	"communitycentre/internal/metrics"
	"communitycentre/internal/queue"
	"communitycentre/internal/report"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config     config.App
	Attendance *attendance.Service
	Signer     *auth.Signer
	Queue      queue.Queue
	Reports    *report.Builder
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Health     map[string]func(context.Context) bool
	Log        *zap.Logger
}

// Server holds the handlers' shared state.
type Server struct {
	cfg      config.App
	att      *attendance.Service
	signer   *auth.Signer
	queue    queue.Queue
	reports  *report.Builder
	metrics  *metrics.Metrics
	verifier checkin.Verifier
	gate     *checkin.Gate
	health   map[string]func(context.Context) bool
	log      *zap.Logger
}

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		reg := prometheus.NewRegistry()
		d.Metrics = metrics.New(reg)
		if d.Gatherer == nil {
			d.Gatherer = reg
		}
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Reports == nil {
		d.Reports = report.NewBuilder(d.Attendance, nil, report.Options{Centre: d.Config.CentreName}, d.Log)
	}
	s := &Server{
		cfg:      d.Config,
		att:      d.Attendance,
		signer:   d.Signer,
		queue:    d.Queue,
		reports:  d.Reports,
		metrics:  d.Metrics,
		verifier: checkin.NewVerifier(d.Config.QRSecret),
		gate:     checkin.NewGate(d.Attendance.Repository(), d.Config.LocateTimeout),
		health:   d.Health,
		log:      d.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(d.Log, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(d.Config.RateLimitPerMin, d.Config.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.GET("/workers", s.listPublicWorkers)
	v1.GET("/checkin/options", s.checkinOptions)
	v1.POST("/checkin", s.checkin)
	v1.POST("/attendance", auth.RequireRole(d.Signer, auth.RoleCheckin), s.submitAttendance)
	v1.POST("/admin/login", s.adminLogin)

	admin := v1.Group("/admin", auth.RequireRole(d.Signer, auth.RoleAdmin))
	admin.GET("/workers", s.listWorkers)
	admin.POST("/workers", s.createWorker)
	admin.GET("/workers/:id", s.getWorker)
	admin.PUT("/workers/:id", s.updateWorker)
	admin.DELETE("/workers/:id", s.deleteWorker)
	admin.GET("/location", s.getLocation)
	admin.PUT("/location", s.setLocation)
	admin.GET("/records", s.listRecords)
	admin.GET("/records/:id", s.getRecord)
	admin.GET("/reports/attendance.pdf", s.reportPDF)
	admin.GET("/reports/attendance.xlsx", s.reportXLSX)
	admin.GET("/qr.png", s.qrImage)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	body := gin.H{}
	status := http.StatusOK
	for name, check := range s.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	if status == http.StatusOK {
		body["status"] = "ok"
	} else {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
