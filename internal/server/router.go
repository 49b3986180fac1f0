// Package server provides embeddable HTTP handlers for the monitoring
// engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/svcwatch/internal/engine"
	"github.com/loykin/svcwatch/internal/policy"
)

// Router provides embeddable HTTP handlers for inspecting services and
// managing their restart policies.
// Endpoints:
//
//	GET  {basePath}/services
//	GET  {basePath}/services/:pid
//	POST {basePath}/services/start            body: {"name": "..."}
//	POST {basePath}/services/:pid/stop
//	POST {basePath}/services/:pid/restart
//	GET  {basePath}/services/:pid/policy
//	POST {basePath}/services/:pid/policy      body: policy JSON
//	DELETE {basePath}/services/:pid/policy
//	POST {basePath}/services/:pid/queue-threshold  body: {"queue_threshold": N}
//	GET  {basePath}/queues
//	GET  {basePath}/executables
//	GET  {basePath}/folder
//	POST {basePath}/folder                    body: {"folder_path": "..."}
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	eng      *engine.Engine
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(eng *engine.Engine, basePath string) *Router {
	return &Router{eng: eng, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/services", r.handleServices)
	group.GET("/services/:pid", r.handleService)
	group.POST("/services/start", r.handleStart)
	group.POST("/services/:pid/stop", r.handleStop)
	group.POST("/services/:pid/restart", r.handleRestart)
	group.GET("/services/:pid/policy", r.handleGetPolicy)
	group.POST("/services/:pid/policy", r.handleSetPolicy)
	group.DELETE("/services/:pid/policy", r.handleDeletePolicy)
	group.POST("/services/:pid/queue-threshold", r.handleQueueThreshold)
	group.GET("/queues", r.handleQueues)
	group.GET("/executables", r.handleExecutables)
	group.GET("/folder", r.handleGetFolder)
	group.POST("/folder", r.handleSetFolder)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, eng *engine.Engine) (*http.Server, error) {
	r := NewRouter(eng, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type pidResp struct {
	OK  bool  `json:"ok"`
	PID int32 `json:"pid"`
}

func (r *Router) handleServices(c *gin.Context) {
	views, err := r.eng.Services(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, views)
}

func (r *Router) handleService(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	view, err := r.eng.Service(c.Request.Context(), pid)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

func (r *Router) handleStart(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.Name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	pid, err := r.eng.StartService(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pidResp{OK: true, PID: pid})
}

func (r *Router) handleStop(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	if err := r.eng.StopService(c.Request.Context(), pid); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRestart(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	// The restart runs asynchronously; detach it from the request context.
	if err := r.eng.Restart(context.WithoutCancel(c.Request.Context()), pid); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, okResp{OK: true})
}

func (r *Router) handleGetPolicy(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	if _, err := r.eng.Service(c.Request.Context(), pid); err != nil {
		writeError(c, err)
		return
	}
	p, tracked := r.eng.PolicyFor(pid)
	if !tracked {
		p = policy.Default()
	}
	writeJSON(c, http.StatusOK, gin.H{"policy": p, "tracked": tracked})
}

func (r *Router) handleSetPolicy(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	var p policy.Policy
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.eng.SetPolicy(c.Request.Context(), pid, p); err != nil {
		writeError(c, err)
		return
	}
	// Echo what actually took effect: disabling may have reduced or
	// dropped the entry.
	effective, tracked := r.eng.PolicyFor(pid)
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "policy": effective, "tracked": tracked})
}

func (r *Router) handleDeletePolicy(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	if !r.eng.RemovePolicy(pid) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "no policy for pid"})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleQueueThreshold(c *gin.Context) {
	pid, ok := parsePID(c)
	if !ok {
		return
	}
	var req struct {
		QueueThreshold int64 `json:"queue_threshold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.eng.SetQueueThreshold(c.Request.Context(), pid, req.QueueThreshold); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleQueues(c *gin.Context) {
	queues, err := r.eng.Queues(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, queues)
}

func (r *Router) handleExecutables(c *gin.Context) {
	execs, err := r.eng.Executables()
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, execs)
}

func (r *Router) handleGetFolder(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"folder_path": r.eng.Folder()})
}

func (r *Router) handleSetFolder(c *gin.Context) {
	var req struct {
		FolderPath string `json:"folder_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeAbsPath(req.FolderPath) || req.FolderPath == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid folder_path: must be absolute path without traversal"})
		return
	}
	if err := r.eng.SetFolder(req.FolderPath); err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func writeError(c *gin.Context, err error) {
	var verr *policy.ValidationError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.Is(err, engine.ErrRestartInFlight):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.Is(err, engine.ErrNoFolder), errors.As(err, &verr):
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}
