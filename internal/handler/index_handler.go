package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"problem-search-go/internal/model"
	"problem-search-go/internal/service"
	"problem-search-go/pkg/log"
	"problem-search-go/pkg/searchindex"

	"github.com/gin-gonic/gin"
)

// DocumentGetter 按 key 读取索引中的文档。
type DocumentGetter interface {
	Get(ctx context.Context, key string) (model.ProblemIndexDoc, error)
}

// IndexHandler 提供索引内容的查看和单题重新同步，用于排查同步问题。
type IndexHandler struct {
	getter        DocumentGetter
	resyncService service.ResyncService
}

// NewIndexHandler 创建一个新的 IndexHandler 实例。resyncService 为 nil 时重新同步接口返回 503。
func NewIndexHandler(getter DocumentGetter, resyncService service.ResyncService) *IndexHandler {
	return &IndexHandler{getter: getter, resyncService: resyncService}
}

func parseDocKey(c *gin.Context) (string, int64, bool) {
	docID, err := strconv.ParseInt(c.Param("docId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 docId", "data": nil})
		return "", 0, false
	}
	return c.Param("domainId"), docID, true
}

// GetDocument 处理 GET /admin/index/:domainId/:docId
func (h *IndexHandler) GetDocument(c *gin.Context) {
	domainID, docID, ok := parseDocKey(c)
	if !ok {
		return
	}

	key := model.IndexKey(domainID, docID)
	doc, err := h.getter.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, searchindex.ErrNotFound) || errors.Is(err, searchindex.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "索引中不存在该题目", "data": nil})
			return
		}
		log.Errorf("[IndexHandler] 读取索引文档失败, key: %s, error: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取索引失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": doc})
}

// Resync 处理 POST /admin/index/:domainId/:docId/resync
// 事件发布成功即返回 202，索引在消费者处理后才会更新。
func (h *IndexHandler) Resync(c *gin.Context) {
	domainID, docID, ok := parseDocKey(c)
	if !ok {
		return
	}
	if h.resyncService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "未配置事件发布", "data": nil})
		return
	}

	event, err := h.resyncService.Resync(c.Request.Context(), domainID, docID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "重新同步失败", "data": nil})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "message": "success", "data": gin.H{
		"type": event.Type,
		"key":  event.Key(),
	}})
}
