package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"degree_planner/internal/catalog"
	"degree_planner/internal/service"
	"degree_planner/internal/store"
)

type handlers struct {
	svc *service.AdvisorService
}

type errorBody struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"courses":           h.svc.Catalog().Len(),
		"algorithm_version": service.AlgorithmVersion,
	})
}

func (h *handlers) courseCatalog(c *gin.Context) {
	cat := h.svc.Catalog()
	edges := []catalog.Prerequisite{}
	graph := cat.Graph()
	for _, code := range cat.Codes() {
		for _, pre := range graph.Predecessors(code) {
			edges = append(edges, catalog.Prerequisite{PrereqCode: pre, CourseCode: code})
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"courses":       cat.Courses(),
		"prerequisites": edges,
	})
}

func (h *handlers) recommend(c *gin.Context) {
	var req service.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	resp, err := h.svc.Recommend(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) plan(c *gin.Context) {
	var req service.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	resp, err := h.svc.Plan(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type criticalPathQuery struct {
	Target string `form:"target" binding:"required"`
}

func (h *handlers) criticalPath(c *gin.Context) {
	var q criticalPathQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	resp, err := h.svc.CriticalPath(c.Request.Context(), c.Param("id"), q.Target)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) bottlenecks(c *gin.Context) {
	id := c.Param("id")
	bs, err := h.svc.Bottlenecks(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": id, "bottlenecks": bs})
}

func (h *handlers) progress(c *gin.Context) {
	id := c.Param("id")
	p, err := h.svc.Progress(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": id, "progress": p})
}

func invalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{
		Status:    "error",
		ErrorCode: "INVALID_REQUEST",
		Message:   "request failed validation",
		Details:   err.Error(),
	})
}

// fail maps a service error to a status code and error body.
func fail(c *gin.Context, err error) {
	body := errorBody{Status: "error", Message: err.Error()}
	status := http.StatusInternalServerError

	var cycleErr *catalog.CycleError
	switch {
	case errors.Is(err, store.ErrStudentNotFound):
		status, body.ErrorCode = http.StatusNotFound, "STUDENT_NOT_FOUND"
	case errors.As(err, &cycleErr):
		status, body.ErrorCode = http.StatusConflict, "CYCLE_DETECTED"
		body.Details = gin.H{"cycles": cycleErr.Cycles, "nodes": cycleErr.Nodes}
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, catalog.ErrUnknownCourse):
		status, body.ErrorCode = http.StatusBadRequest, "INVALID_REQUEST"
	default:
		body.ErrorCode = "ALGORITHM_ERROR"
		logr.FromContextOrDiscard(c.Request.Context()).Error(err, "Request failed", "path", c.FullPath())
	}
	c.JSON(status, body)
}
