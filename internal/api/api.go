// Package api exposes the daemon's administrative HTTP surface: namespace
// inspection, per-key access, resets, and moves.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shivammaggu/prefstore/pkg/engine"
	"github.com/shivammaggu/prefstore/pkg/prefs"
	"github.com/shivammaggu/prefstore/pkg/sdk"
)

type Handler struct {
	Store sdk.Store
}

// Register mounts the admin routes on the given router.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/namespaces", h.ListNamespaces)
	r.GET("/namespaces/:ns", h.DumpNamespace)
	r.GET("/namespaces/:ns/keys", h.ListKeys)
	r.GET("/namespaces/:ns/keys/:key", h.GetKey)
	r.POST("/namespaces/:ns/keys/:key", h.SetKey)
	r.DELETE("/namespaces/:ns/keys/:key", h.DeleteKey)
	r.POST("/namespaces/:ns/reset", h.ResetNamespace)
	r.POST("/move", h.Move)
}

// fail renders an error response, with 404 for the not-found sentinels.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, prefs.ErrNotFound) || errors.Is(err, engine.ErrNamespaceNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListNamespaces(c *gin.Context) {
	namespaces, err := h.Store.Namespaces()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, namespaces)
}

func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Store.Keys(c.Param("ns"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (h *Handler) DumpNamespace(c *gin.Context) {
	data, err := h.Store.Dump(c.Param("ns"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) GetKey(c *gin.Context) {
	val, err := h.Store.Get(c.Param("ns"), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": val})
}

func (h *Handler) SetKey(c *gin.Context) {
	var val any
	if err := c.ShouldBindJSON(&val); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.Set(c.Param("ns"), c.Param("key"), val); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteKey(c *gin.Context) {
	if err := h.Store.Remove(c.Param("ns"), c.Param("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ResetNamespace(c *gin.Context) {
	if err := h.Store.Wipe(c.Param("ns")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Move(c *gin.Context) {
	var input struct {
		SrcNamespace string `json:"src_namespace" binding:"required"`
		DstNamespace string `json:"dst_namespace" binding:"required"`
		Key          string `json:"key" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.Move(input.SrcNamespace, input.DstNamespace, input.Key); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
