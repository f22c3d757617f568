package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feedback-intel/core/internal/admin"
	"github.com/feedback-intel/core/internal/analytics"
	"github.com/feedback-intel/core/internal/apperr"
	"github.com/feedback-intel/core/internal/auth"
	"github.com/feedback-intel/core/internal/export"
	"github.com/feedback-intel/core/internal/ingestion"
	"github.com/feedback-intel/core/internal/platform/dbctx"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/qa"
	"github.com/feedback-intel/core/internal/repos"
)

// conversationTurn is one exchange kept by the in-process chat history
// buffer backing GET /chat/conversations; there is no durable chat-memory
// store in this service, so memory is exactly as durable as the process.
type conversationTurn struct {
	Question  string    `json:"question"`
	Answer    qa.Answer `json:"answer"`
	AskedAt   time.Time `json:"asked_at"`
}

const maxConversationHistory = 200

type Handlers struct {
	log       *logger.Logger
	ingestion *ingestion.Pipeline
	analytics *analytics.Service
	export    *export.Service
	admin     *admin.Service
	auth      *auth.Service
	qa        *qa.Agent
	qaTimeout time.Duration
	feedbackRepo repos.FeedbackRepo
	topicRepo    repos.TopicRepo

	convMu   sync.Mutex
	convLog  []conversationTurn
}

func NewHandlers(
	log *logger.Logger,
	ingestionPipeline *ingestion.Pipeline,
	analyticsSvc *analytics.Service,
	exportSvc *export.Service,
	adminSvc *admin.Service,
	authSvc *auth.Service,
	qaAgent *qa.Agent,
	qaTimeout time.Duration,
	feedbackRepo repos.FeedbackRepo,
	topicRepo repos.TopicRepo,
) *Handlers {
	return &Handlers{
		log:          log.With("component", "Handlers"),
		ingestion:    ingestionPipeline,
		analytics:    analyticsSvc,
		export:       exportSvc,
		admin:        adminSvc,
		auth:         authSvc,
		qa:           qaAgent,
		qaTimeout:    qaTimeout,
		feedbackRepo: feedbackRepo,
		topicRepo:    topicRepo,
	}
}

func respondErr(c *gin.Context, err error) {
	WriteError(c, apperr.As(err))
}

// --- Auth ---

func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid login request: %v", err))
		return
	}
	token, expiresIn, role, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_in": expiresIn, "role": role})
}

// --- Ingestion ---

func (h *Handlers) IngestOne(c *gin.Context) {
	var req struct {
		Source     string                 `json:"source"`
		Body       string                 `json:"body" binding:"required"`
		CustomerID string                 `json:"customer_id"`
		Metadata   map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid feedback payload: %v", err))
		return
	}
	id, err := h.ingestion.CreateOne(c.Request.Context(), req.Source, req.Body, req.CustomerID, req.Metadata)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback_id": id})
}

func (h *Handlers) IngestBatch(c *gin.Context) {
	var items []ingestion.Item
	if err := c.ShouldBindJSON(&items); err != nil {
		respondErr(c, apperr.Validationf("invalid batch payload: %v", err))
		return
	}
	outcomes, err := h.ingestion.CreateBatch(c.Request.Context(), items)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func (h *Handlers) UploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondErr(c, apperr.Validationf("file field required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.Internal, "open upload", err))
		return
	}
	defer f.Close()
	result, err := h.ingestion.UploadCSV(c.Request.Context(), f, c.PostForm("source"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h *Handlers) UploadJSONL(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondErr(c, apperr.Validationf("file field required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.Internal, "open upload", err))
		return
	}
	defer f.Close()
	result, err := h.ingestion.UploadJSONL(c.Request.Context(), f, c.PostForm("source"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

// --- Feedback lookup ---

func (h *Handlers) GetFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apperr.Validationf("invalid feedback id"))
		return
	}
	f, err := h.feedbackRepo.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.Internal, "load feedback", err))
		return
	}
	if f == nil {
		respondErr(c, apperr.NotFoundf("feedback %s not found", id))
		return
	}
	c.JSON(http.StatusOK, f)
}

// --- Analytics ---

func parseDateRange(c *gin.Context) repos.DateRange {
	now := time.Now().UTC()
	dr := repos.DateRange{Start: now.AddDate(0, 0, -30), End: now}
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			dr.Start = t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			dr.End = t
		}
	}
	return dr
}

func (h *Handlers) SentimentTrend(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")
	rows, err := h.analytics.SentimentTrend(c.Request.Context(), groupBy, parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": rows})
}

func (h *Handlers) VolumeTrend(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")
	rows, err := h.analytics.VolumeTrend(c.Request.Context(), groupBy, parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": rows})
}

func (h *Handlers) DailyAggregates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "30"))
	rows, total, err := h.analytics.DailyAggregates(c.Request.Context(), parseDateRange(c), page, pageSize)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "total": total})
}

func (h *Handlers) CustomerStats(c *gin.Context) {
	minCount, _ := strconv.Atoi(c.DefaultQuery("min_feedback_count", "1"))
	rows, err := h.analytics.CustomerStats(c.Request.Context(), minCount, parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handlers) SourceStats(c *gin.Context) {
	rows, err := h.analytics.SourceStats(c.Request.Context(), parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handlers) ToxicityStats(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0.5"), 64)
	row, err := h.analytics.ToxicityStats(c.Request.Context(), threshold, parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handlers) Summary(c *gin.Context) {
	total, negativePct, series, err := h.analytics.Summary(c.Request.Context(), parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "negative_pct": negativePct, "series": series})
}

func (h *Handlers) TopicBreakdown(c *gin.Context) {
	rows, err := h.analytics.TopicBreakdown(c.Request.Context(), parseDateRange(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *Handlers) Examples(c *gin.Context) {
	var topicFilter *uint
	if v := c.Query("topic_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			id := uint(n)
			topicFilter = &id
		}
	}
	var sentimentFilter *int
	if v := c.Query("sentiment"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			sentimentFilter = &n
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.analytics.Examples(c.Request.Context(), topicFilter, sentimentFilter, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// --- Export ---

func exportFilterFromQuery(c *gin.Context) repos.ExportFilter {
	var f repos.ExportFilter
	if v := c.Query("source"); v != "" {
		f.Source = &v
	}
	if v := c.Query("customer_id"); v != "" {
		f.CustomerID = &v
	}
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.StartDate = &t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.EndDate = &t
		}
	}
	if v := c.Query("topic_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			id := uint(n)
			f.TopicID = &id
		}
	}
	if v := c.Query("sentiment"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Sentiment = &n
		}
	}
	return f
}

func (h *Handlers) ExportFeedback(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/csv")
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="feedback.csv"`)
	if err := h.export.Feedback(c.Request.Context(), c.Writer, exportFilterFromQuery(c)); err != nil {
		h.log.Warn("feedback export aborted", "error", err)
	}
}

func (h *Handlers) ExportTopics(c *gin.Context) {
	minCount, _ := strconv.Atoi(c.DefaultQuery("min_feedback_count", "0"))
	c.Writer.Header().Set("Content-Type", "text/csv")
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="topics.csv"`)
	if err := h.export.Topics(c.Request.Context(), c.Writer, minCount); err != nil {
		h.log.Warn("topics export aborted", "error", err)
	}
}

func (h *Handlers) ExportDailyAggregates(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/csv")
	c.Writer.Header().Set("Content-Disposition", `attachment; filename="daily_aggregates.csv"`)
	if err := h.export.DailyAggregates(c.Request.Context(), c.Writer, parseDateRange(c)); err != nil {
		h.log.Warn("daily aggregates export aborted", "error", err)
	}
}

// --- Admin ---

func actorFrom(c *gin.Context) admin.Actor {
	return admin.Actor{
		Subject: string(auth.RoleFromContext(c.Request.Context())),
		IP:      c.ClientIP(),
		Agent:   c.Request.UserAgent(),
	}
}

func (h *Handlers) RelabelTopic(c *gin.Context) {
	var req struct {
		TopicID     uint     `json:"topic_id" binding:"required"`
		NewLabel    string   `json:"new_label" binding:"required"`
		NewKeywords []string `json:"new_keywords"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid relabel request: %v", err))
		return
	}
	topic, err := h.admin.RelabelTopic(c.Request.Context(), actorFrom(c), req.TopicID, req.NewLabel, req.NewKeywords)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (h *Handlers) ReassignFeedback(c *gin.Context) {
	var req struct {
		FeedbackIDs   []string `json:"feedback_ids" binding:"required"`
		TargetTopicID uint     `json:"target_topic_id" binding:"required"`
		Reason        string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid reassign request: %v", err))
		return
	}
	ids := make([]uuid.UUID, 0, len(req.FeedbackIDs))
	for _, s := range req.FeedbackIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			respondErr(c, apperr.Validationf("invalid feedback id %q", s))
			return
		}
		ids = append(ids, id)
	}
	affected, err := h.admin.ReassignFeedback(c.Request.Context(), actorFrom(c), ids, req.TargetTopicID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected_count": affected})
}

func (h *Handlers) DeleteTopic(c *gin.Context) {
	topicID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondErr(c, apperr.Validationf("invalid topic id"))
		return
	}
	if err := h.admin.DeleteTopic(c.Request.Context(), actorFrom(c), uint(topicID)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) AuditLog(c *gin.Context) {
	var topicFilter *uint
	if v := c.Param("topic_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			id := uint(n)
			topicFilter = &id
		}
	}
	if topicFilter == nil {
		if v := c.Query("topic_id"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				id := uint(n)
				topicFilter = &id
			}
		}
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	entries, total, err := h.admin.AuditLog(c.Request.Context(), topicFilter, page, pageSize)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

func (h *Handlers) AdminStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) AdminDatabaseHealth(c *gin.Context) {
	if err := h.admin.DatabaseHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handlers) AdminRefreshMaterializedView(c *gin.Context) {
	if err := h.admin.RefreshMaterializedView(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) AdminTopicFeedback(c *gin.Context) {
	topicID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondErr(c, apperr.Validationf("invalid topic id"))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	rows, total, err := h.admin.TopicFeedback(c.Request.Context(), uint(topicID), page, pageSize)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "total": total})
}

func (h *Handlers) AdminCleanupOldData(c *gin.Context) {
	var req struct {
		DaysOld int  `json:"days_old" binding:"required"`
		DryRun  bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid cleanup request: %v", err))
		return
	}
	affected, err := h.admin.CleanupOldData(c.Request.Context(), actorFrom(c), req.DaysOld, req.DryRun)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected_count": affected, "dry_run": req.DryRun})
}

func (h *Handlers) AdminCacheClear(c *gin.Context) {
	h.admin.ClearCache(c.Request.Context(), actorFrom(c))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DashboardSummary folds the headline summary and topic breakdown into a
// single response for the admin dashboard's landing view.
func (h *Handlers) DashboardSummary(c *gin.Context) {
	r := parseDateRange(c)
	total, negativePct, series, err := h.analytics.Summary(c.Request.Context(), r)
	if err != nil {
		respondErr(c, err)
		return
	}
	topics, err := h.analytics.TopicBreakdown(c.Request.Context(), r)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":        total,
		"negative_pct": negativePct,
		"series":       series,
		"topics":       topics,
	})
}

func (h *Handlers) ListTopics(c *gin.Context) {
	rows, err := h.topicRepo.List(dbctx.New(c.Request.Context()))
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.Internal, "list topics", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": rows})
}

// --- QA ---

func (h *Handlers) Ask(c *gin.Context) {
	var req struct {
		Question   string  `json:"question" binding:"required"`
		Start      *string `json:"start"`
		End        *string `json:"end"`
		Sentiment  *int    `json:"sentiment"`
		TopicID    *uint   `json:"topic_id"`
		Source     *string `json:"source"`
		CustomerID *string `json:"customer_id"`
		Language   *string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Validationf("invalid question payload: %v", err))
		return
	}

	filter := qa.Filter{Sentiment: req.Sentiment, TopicID: req.TopicID, Source: req.Source, CustomerID: req.CustomerID, Language: req.Language}
	if req.Start != nil {
		if t, err := time.Parse("2006-01-02", *req.Start); err == nil {
			filter.Start = &t
		}
	}
	if req.End != nil {
		if t, err := time.Parse("2006-01-02", *req.End); err == nil {
			filter.End = &t
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.qaTimeout)
	defer cancel()
	answer, err := h.qa.Ask(ctx, req.Question, filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.recordConversation(req.Question, answer)
	c.JSON(http.StatusOK, answer)
}

func (h *Handlers) recordConversation(question string, answer qa.Answer) {
	h.convMu.Lock()
	defer h.convMu.Unlock()
	h.convLog = append(h.convLog, conversationTurn{Question: question, Answer: answer, AskedAt: time.Now().UTC()})
	if len(h.convLog) > maxConversationHistory {
		h.convLog = h.convLog[len(h.convLog)-maxConversationHistory:]
	}
}

// Conversations returns the in-process chat history, most recent first,
// paginated the same way the audit log is.
func (h *Handlers) Conversations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	h.convMu.Lock()
	total := len(h.convLog)
	reversed := make([]conversationTurn, total)
	for i, t := range h.convLog {
		reversed[total-1-i] = t
	}
	h.convMu.Unlock()

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	c.JSON(http.StatusOK, gin.H{"conversations": reversed[start:end], "total": total})
}

// ClearMemory discards the in-process chat history; the QA agent itself
// is stateless per call, so this only clears the conversation log used by
// GET /chat/conversations.
func (h *Handlers) ClearMemory(c *gin.Context) {
	h.convMu.Lock()
	h.convLog = nil
	h.convMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Suggestions proposes starter questions derived from the current topic
// list, so a new caller has something to ask about without already
// knowing what topics exist.
func (h *Handlers) Suggestions(c *gin.Context) {
	topics, err := h.topicRepo.List(dbctx.New(c.Request.Context()))
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.Internal, "list topics for suggestions", err))
		return
	}
	suggestions := []string{
		"What is the overall sentiment trend over the last 30 days?",
		"Which sources generate the most negative feedback?",
	}
	for i, t := range topics {
		if i >= 5 {
			break
		}
		suggestions = append(suggestions, "What are customers saying about "+t.Label+"?")
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// --- Health ---

// Healthz is the bare liveness probe: plain-text "ok", no JSON envelope,
// for load balancers that just check the response body.
func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Health is the richer readiness check consumed by dashboards.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
