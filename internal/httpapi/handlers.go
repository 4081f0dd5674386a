package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/insighthub/internal/auth"
	"github.com/mesh-intelligence/insighthub/internal/sqlite"
	"github.com/mesh-intelligence/insighthub/internal/tabular"
	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Session   auth.Session `json:"session"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sess, err := s.logins.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	token, exp, err := s.tokens.Issue(sess)
	if err != nil {
		writeError(c, err)
		return
	}
	s.log.Info("session issued", "username", sess.Username, "role", sess.Role, "request_id", requestID(c))
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, Session: sess})
}

func (s *Server) me(c *gin.Context) {
	sess, err := auth.FromContext(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) insights(c *gin.Context) {
	s.generateInsights(c, false)
}

func (s *Server) saveInsights(c *gin.Context) {
	s.generateInsights(c, true)
}

func (s *Server) generateInsights(c *gin.Context, save bool) {
	out, err := s.hub.Insights(c.Request.Context(), c.Query("dept"), save)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": nonNil(out)})
}

func (s *Server) insightLog(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		writeError(c, err)
		return
	}
	unread := c.Query("unread") == "true" || c.Query("unread") == "1"
	out, err := s.hub.ListInsights(c.Request.Context(), c.Query("dept"), unread, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": nonNil(out)})
}

func (s *Server) markInsightRead(c *gin.Context) {
	if err := s.hub.MarkInsightRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) summary(c *gin.Context) {
	out, err := s.hub.Summary(c.Request.Context(), c.Query("dept"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) kpis(c *gin.Context) {
	out, err := s.hub.KPIs(c.Request.Context(), c.Query("dept"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": nonNil(out)})
}

func (s *Server) trend(c *gin.Context) {
	since, err := dateQuery(c, "since")
	if err != nil {
		writeError(c, err)
		return
	}
	window, err := intQuery(c, "window")
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := s.hub.Trend(c.Request.Context(), c.Param("id"), since, window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) achievement(c *gin.Context) {
	out, err := s.hub.Achievement(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type factRequest struct {
	Date   string   `json:"date" binding:"required"`
	DeptID string   `json:"dept_id"`
	Actual *float64 `json:"actual_value" binding:"required"`
	Target float64  `json:"target_value"`
}

func (s *Server) recordFact(c *gin.Context) {
	var req factRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	id, err := dateid.ParseKey(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	f, err := s.hub.RecordFact(c.Request.Context(), types.KPIFact{
		KPIID:  c.Param("id"),
		DeptID: req.DeptID,
		DateID: id,
		Actual: *req.Actual,
		Target: req.Target,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) workItems(c *gin.Context) {
	out, err := s.hub.WorkItems(c.Request.Context(), c.Query("dept"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_items": nonNil(out)})
}

func (s *Server) saveWorkItem(c *gin.Context) {
	var w types.WorkItem
	if err := c.ShouldBindJSON(&w); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	out, err := s.hub.SaveWorkItem(c.Request.Context(), w)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) workUpdates(c *gin.Context) {
	out, err := s.hub.WorkUpdates(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": nonNil(out)})
}

type updateRequest struct {
	Date            string  `json:"date"`
	ProgressPercent float64 `json:"progress_percent" binding:"gte=0,lte=100"`
	Narrative       string  `json:"update_text"`
	Blockers        string  `json:"blockers"`
	DecisionNeeded  bool    `json:"decision_needed"`
}

func (s *Server) addWorkUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	id := dateid.ToDateID(s.now())
	if req.Date != "" {
		var err error
		if id, err = dateid.ParseKey(req.Date); err != nil {
			writeError(c, err)
			return
		}
	}
	out, err := s.hub.AddWorkUpdate(c.Request.Context(), types.WorkUpdate{
		WorkID:          c.Param("id"),
		DateID:          id,
		ProgressPercent: req.ProgressPercent,
		Narrative:       req.Narrative,
		Blockers:        req.Blockers,
		DecisionNeeded:  req.DecisionNeeded,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) actions(c *gin.Context) {
	out, err := s.hub.Actions(c.Request.Context(), c.Query("dept"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": nonNil(out)})
}

func (s *Server) promoteAction(c *gin.Context) {
	out, err := s.hub.PromoteAction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) report(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := s.hub.Report(c.Request.Context(), sqlite.ReportParams{
		Type:   c.Param("type"),
		DeptID: c.Query("dept"),
		FromID: from,
		ToID:   to,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeTable(c, "report-"+c.Param("type"), out)
}

type aggregateRequest struct {
	Table string       `json:"table" binding:"required"`
	Spec  dataset.Spec `json:"spec"`
}

func (s *Server) aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	out, err := s.hub.Aggregate(c.Request.Context(), req.Table, req.Spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tableJSON(out))
}

func (s *Server) export(c *gin.Context) {
	out, err := s.hub.ReadTable(c.Request.Context(), c.Param("table"))
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeTable(c, c.Param("table"), out)
}

// writeTable renders t as JSON, or as a file download when ?format names
// one of the tabular formats.
func (s *Server) writeTable(c *gin.Context, name string, t *dataset.Table) {
	raw := c.Query("format")
	if raw == "" {
		c.JSON(http.StatusOK, tableJSON(t))
		return
	}
	f, err := tabular.ParseFormat(raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", contentType(f))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, f))
	c.Status(http.StatusOK)
	if err := tabular.Write(c.Writer, t, f); err != nil {
		s.log.Error("writing table", "table", name, "format", f, "error", err, "request_id", requestID(c))
	}
}

func contentType(f tabular.Format) string {
	switch f {
	case tabular.FormatCSV:
		return "text/csv; charset=utf-8"
	case tabular.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json; charset=utf-8"
}

type tableBody struct {
	Columns []string         `json:"columns"`
	Rows    []dataset.Record `json:"rows"`
}

func tableJSON(t *dataset.Table) tableBody {
	return tableBody{Columns: t.Schema.Names(), Rows: nonNil(t.Records())}
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func dateQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return dateid.ParseKey(raw)
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
