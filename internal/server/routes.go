package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/caseflow-dev/caseflow/internal/delegation"
	"github.com/caseflow-dev/caseflow/internal/depgraph"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/notify"
	"github.com/caseflow-dev/caseflow/internal/task"
	"github.com/caseflow-dev/caseflow/internal/workflow"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, sink notify.Sink) {
	api := router.Group("/api")

	api.GET("/health", handleHealth(db))

	api.POST("/tasks", handleTaskCreate(db))
	api.GET("/tasks/:id", handleTaskGet(db))
	api.POST("/tasks/:id/status", handleTaskStatus(db, sink))
	api.POST("/tasks/:id/delegate", handleTaskDelegate(db, sink))
	api.POST("/tasks/:id/complete-delegated", handleCompleteDelegated(db, sink))
	api.GET("/tasks/:id/predecessors", handlePredecessors(db))
	api.POST("/tasks/:id/deps", handleDepAdd(db))
	api.DELETE("/tasks/:id/deps/:dep", handleDepRemove(db))

	api.POST("/cases/:id/handover", handleHandover(db))
	api.POST("/cases/:id/approve", handleApprove(db))
	api.POST("/cases/:id/reject", handleReject(db))
	api.POST("/cases/:id/closure-requests", handleRequestClosure(db))
	api.POST("/closure-requests/:id/approve", handleApproveClosure(db))
	api.POST("/closure-requests/:id/reject", handleRejectClosure(db))
}

// actorRequest is the common body fragment naming the acting user.
type actorRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// loadActor resolves the acting username to a user row. Writes the error
// response itself and returns nil when resolution fails.
func loadActor(c *gin.Context, db *gorm.DB, username string) *models.User {
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown actor: " + username})
			return nil
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	return &u
}

// writeResult maps a workflow result onto an HTTP response: permission
// failures become 403, validation and state conflicts 422, anything else 500.
func writeResult(c *gin.Context, res workflow.Result) {
	if res.Success {
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "data": res.Data})
		return
	}

	var perm *workflow.PermissionError
	var val *workflow.ValidationError
	var conflict *workflow.StateConflictError
	switch {
	case errors.As(res.Err, &perm):
		c.JSON(http.StatusForbidden, gin.H{"error": res.Message})
	case errors.As(res.Err, &val), errors.As(res.Err, &conflict):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Message})
	}
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleTaskCreate(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Priority    int    `json:"priority"`
		IsMilestone bool   `json:"is_milestone"`
		Assignee    string `json:"assignee"`
		ParentID    string `json:"parent_id"`
		FlowID      *uint  `json:"flow_id"`
		CaseID      *uint  `json:"case_id"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		created, err := task.Create(db, task.CreateOpts{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			IsMilestone: req.IsMilestone,
			Assignee:    req.Assignee,
			ParentID:    req.ParentID,
			FlowID:      req.FlowID,
			CaseID:      req.CaseID,
		})
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func handleTaskGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := task.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

func handleTaskStatus(db *gorm.DB, sink notify.Sink) gin.HandlerFunc {
	type request struct {
		actorRequest
		Status string `json:"status" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.ChangeTaskStatus(db, c.Param("id"), req.Status, actor, sink))
	}
}

func handleTaskDelegate(db *gorm.DB, sink notify.Sink) gin.HandlerFunc {
	type request struct {
		actorRequest
		Target string `json:"target" binding:"required"`
		Reason string `json:"reason"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, delegation.DelegateToOperations(db, c.Param("id"), req.Target, actor, req.Reason, sink))
	}
}

func handleCompleteDelegated(db *gorm.DB, sink notify.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req actorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, delegation.CompleteDelegated(db, c.Param("id"), actor, sink))
	}
}

func handlePredecessors(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		preds, err := depgraph.Predecessors(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"predecessors": preds})
	}
}

func handleDepAdd(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		DependsOn string `json:"depends_on" binding:"required"`
		DepType   string `json:"dep_type"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if err := depgraph.AddEdge(db, c.Param("id"), req.DependsOn, req.DepType); err != nil {
			status := http.StatusUnprocessableEntity
			if !errors.Is(err, depgraph.ErrSelfReference) && !errors.Is(err, depgraph.ErrCircularDependency) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"task_id": c.Param("id"), "depends_on": req.DependsOn})
	}
}

func handleDepRemove(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := depgraph.RemoveEdge(db, c.Param("id"), c.Param("dep")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": true})
	}
}

// caseID parses the :id path parameter; writes the error response itself.
func caseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid id: " + c.Param("id")})
		return 0, false
	}
	return uint(id), true
}

func handleHandover(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req actorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.HandoverToValidation(db, id, actor))
	}
}

func handleApprove(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req actorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.ApproveValidation(db, id, actor))
	}
}

func handleReject(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		actorRequest
		Reason string `json:"reason"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.RejectValidation(db, id, actor, req.Reason))
	}
}

func handleRequestClosure(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		actorRequest
		CompletionPct int `json:"completion_pct"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.RequestClosure(db, id, actor, req.CompletionPct))
	}
}

func handleApproveClosure(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req actorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.ApproveClosure(db, id, actor))
	}
}

func handleRejectClosure(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		actorRequest
		Reason string `json:"reason"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		id, ok := caseID(c)
		if !ok {
			return
		}
		actor := loadActor(c, db, req.Actor)
		if actor == nil {
			return
		}
		writeResult(c, workflow.RejectClosure(db, id, actor, req.Reason))
	}
}
