package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"bitbucket.org/gymfocus/maintenance_backend/models/reports"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer = otel.Tracer("gymfocus-maintenance")

// identityMiddleware copies the gateway's identity headers into context. The
// upstream gateway authenticates users; this service only consumes the claims.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if v := strings.TrimSpace(c.GetHeader("x-center-id")); v != "" {
			ctx = utils.SetCenterIdInContext(ctx, v)
		}
		if v := strings.TrimSpace(c.GetHeader("x-user-email")); v != "" {
			ctx = utils.SetUserEmailInContext(ctx, v)
		}
		if v := strings.TrimSpace(c.GetHeader("x-user-name")); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}
		if v := strings.TrimSpace(c.GetHeader("x-user-role")); v != "" {
			ctx = utils.SetUserRoleInContext(ctx, v)
			if strings.EqualFold(v, "director") || strings.EqualFold(v, "admin") {
				ctx = utils.SetIsAdminInContext(ctx, true)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requireDirector gates the director-only surface (campaign management,
// deadline override, network-wide stats) on the gateway's role claim.
func requireDirector(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if utils.IsAdminFromContext(c.Request.Context()) {
			c.Next()
			return
		}
		role, _ := utils.GetUserRoleFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"field": "authz",
			"role":  role,
			"path":  c.FullPath(),
		}).Warn("director endpoint denied")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "director role required"})
	}
}

func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		ctx, span := tracer.Start(c.Request.Context(), name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func startInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInspectionStart
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if input.InspectorEmail == "" {
			input.InspectorEmail, _ = utils.GetUserEmailFromContext(c.Request.Context())
		}
		id, err := models.StartInspection(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inspection_id": id})
	}
}

func needsInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		centerId := strings.TrimSpace(c.Query("center_id"))
		if centerId == "" {
			centerId, _ = utils.GetCenterIdFromContext(c.Request.Context())
		}
		if centerId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "center_id is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"center_id":        centerId,
			"needs_inspection": models.NeedsInspection(c.Request.Context(), centerId),
		})
	}
}

func getInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
			return
		}
		inspection, err := utils.FetchSingleModel[models.Inspection](c.Request.Context(), id, "Items")
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "inspection not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": inspection})
	}
}

func updateInspectionItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}
		var input models.ItemProgressInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		item, err := models.UpdateInspectionItemProgress(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}

func completeInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
			return
		}
		var summary models.InspectionSummary
		if err := c.ShouldBindJSON(&summary); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := models.CompleteInspection(c.Request.Context(), id, &summary); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inspection_id": id, "status": models.InspectionStatusCompleted})
	}
}

func createInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInspectionBulk
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		inspection, err := models.CreateInspection(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": inspection})
	}
}

type acknowledgeAlertRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

func acknowledgeAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
			return
		}
		var req acknowledgeAlertRequest
		_ = c.ShouldBindJSON(&req)
		if req.AcknowledgedBy == "" {
			req.AcknowledgedBy, _ = utils.GetUserNameFromContext(c.Request.Context())
		}
		alert, err := models.AcknowledgeAlert(c.Request.Context(), id, req.AcknowledgedBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": alert})
	}
}

func createReviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewQuarterlyReview
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		review, err := models.CreateReview(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": review})
	}
}

type activateReviewRequest struct {
	Centers            []models.CenterRef `json:"centers" binding:"required"`
	AssigneeByCenterId map[string]string  `json:"assignee_by_center_id"`
}

func activateReviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
			return
		}
		var req activateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := models.ActivateReview(c.Request.Context(), id, req.Centers, req.AssigneeByCenterId); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"review_id": id, "status": models.ReviewStatusActive})
	}
}

func getReviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
			return
		}
		review, err := models.GetQuarterlyReview(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		completed, err := models.CountCompletedAssignments(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": review, "completed_centers": completed})
	}
}

type saveReviewItemsRequest struct {
	Items []models.NewQuarterlyItem `json:"items" binding:"required"`
}

func saveReviewItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment id"})
			return
		}
		var req saveReviewItemsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		items, err := models.SaveReviewItems(c.Request.Context(), id, req.Items)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}

type completeAssignmentRequest struct {
	CompletedBy string `json:"completed_by"`
}

func completeAssignmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment id"})
			return
		}
		var req completeAssignmentRequest
		_ = c.ShouldBindJSON(&req)
		if req.CompletedBy == "" {
			req.CompletedBy, _ = utils.GetUserNameFromContext(c.Request.Context())
		}
		assignment, err := models.CompleteAssignment(c.Request.Context(), id, req.CompletedBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": assignment})
	}
}

type scheduleRequest struct {
	Centers []models.CenterRef `json:"centers" binding:"required"`
}

func scheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		rows := models.QuarterSchedule(c.Request.Context(), models.RedisDeadlineStore{}, req.Centers, time.Now().UTC())
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func getDeadlineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		quarter, year := models.QuarterOf(now)
		if q := strings.TrimSpace(c.Query("quarter")); q != "" {
			quarter = q
		}
		if y := strings.TrimSpace(c.Query("year")); y != "" {
			if n, err := strconv.Atoi(y); err == nil {
				year = n
			}
		}
		deadline := models.ResolveQuarterDeadline(c.Request.Context(), models.RedisDeadlineStore{}, quarter, year)
		c.JSON(http.StatusOK, gin.H{
			"quarter":  quarter,
			"year":     year,
			"deadline": deadline.Format("2006-01-02"),
		})
	}
}

type setDeadlineRequest struct {
	Quarter  string `json:"quarter" binding:"required"`
	Year     int    `json:"year" binding:"required"`
	Deadline string `json:"deadline" binding:"required"`
}

func setDeadlineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setDeadlineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		switch req.Quarter {
		case "Q1", "Q2", "Q3", "Q4":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "quarter must be Q1..Q4"})
			return
		}
		deadline, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be YYYY-MM-DD"})
			return
		}
		store := models.RedisDeadlineStore{}
		if err := store.Set(c.Request.Context(), req.Quarter, req.Year, deadline); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"quarter": req.Quarter, "year": req.Year, "deadline": req.Deadline})
	}
}

func centerStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		centerId := strings.TrimSpace(c.Param("centerId"))
		if centerId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "center id is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": reports.GetCenterStats(c.Request.Context(), centerId)})
	}
}

func directorStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": reports.GetDirectorStats(c.Request.Context(), time.Now().UTC())})
	}
}

func monthlySeriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		months := 12
		if v := strings.TrimSpace(c.Query("months")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				months = n
			}
		}
		points, err := reports.GetMonthlySeries(c.Request.Context(), strings.TrimSpace(c.Query("center_id")), months)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": points})
	}
}

func directorExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		months := 12
		if v := strings.TrimSpace(c.Query("months")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				months = n
			}
		}
		reports.ExportDirectorExcel(c.Request.Context(), c.Writer, months)
	}
}

// requireInternalToken guards the destructive/ops endpoints with the bcrypt
// checked internal token header.
func requireInternalToken(c *gin.Context) bool {
	if err := utils.CheckInternalToken(c.GetHeader("x-internal-token")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireInternalToken(c) {
			return
		}
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}
		now := time.Now().UTC()
		if err := config.GetDB().WithContext(c.Request.Context()).
			Model(&models.OutboxMessageRecord{}).
			Where("id = ?", req.RecordId).
			Updates(map[string]interface{}{
				"processing_status":  models.OutboxProcessStatusPending,
				"is_processed":       false,
				"process_attempts":   0,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_process_error": nil,
			}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"record_id":         req.RecordId,
			"processing_status": models.OutboxProcessStatusPending,
			"next_attempt_at":   now.Format(time.RFC3339Nano),
		})
	}
}

func clearDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireInternalToken(c) {
			return
		}
		if err := models.ClearAllData(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		"x-center-id", "x-user-email", "x-user-name", "x-user-role", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(tracingMiddleware())
	r.Use(identityMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/inspections/start", startInspectionHandler())
	r.GET("/inspections/needed", needsInspectionHandler())
	r.GET("/inspections/:id", getInspectionHandler())
	r.POST("/inspections/:id/complete", completeInspectionHandler())
	r.POST("/inspections", createInspectionHandler())
	r.PUT("/inspection-items/:id", updateInspectionItemHandler())
	r.POST("/inspection-items/:id/photos", itemPhotoUploadHandler())
	r.POST("/alerts/:id/acknowledge", acknowledgeAlertHandler())

	director := requireDirector(logger)
	r.POST("/reviews", director, createReviewHandler())
	r.POST("/reviews/:id/activate", director, activateReviewHandler())
	r.GET("/reviews/:id", getReviewHandler())
	r.PUT("/assignments/:id/items", saveReviewItemsHandler())
	r.POST("/assignments/:id/complete", completeAssignmentHandler())

	r.POST("/schedule", scheduleHandler())
	r.GET("/deadline", getDeadlineHandler())
	r.PUT("/deadline", director, setDeadlineHandler())

	r.GET("/stats/center/:centerId", centerStatsHandler())
	r.GET("/stats/director", director, directorStatsHandler())
	r.GET("/stats/monthly", monthlySeriesHandler())
	r.GET("/stats/director/export", director, directorExportHandler())

	// Ops tooling, guarded by the internal token.
	r.POST("/internal/ops/outbox/replay", outboxReplayHandler())
	r.POST("/internal/ops/clear-data", clearDataHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_CATALOG_SEED")), "true") {
		if err := models.SeedCatalog(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "catalog"}).Error("catalog seed failed: " + err.Error())
		}
	}

	// Start the outbox drain (runs the completion fan-out AFTER commit).
	processorCtx, cancelProcessor := context.WithCancel(context.Background())
	defer cancelProcessor()
	if shouldRunDirectOutboxProcessor() {
		go NewOutboxDirectProcessor(db, logger).Run(processorCtx)
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while draining.
	cancelProcessor()

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
