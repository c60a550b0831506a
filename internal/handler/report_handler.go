package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"problem-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const reportLinkExpiry = 15 * time.Minute

// ReportLinker 为已归档的重建报告生成临时下载链接，由 *storage.ReportStore 实现。
type ReportLinker interface {
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ReportHandler 提供重建报告的下载链接。
type ReportHandler struct {
	linker ReportLinker
}

// NewReportHandler 创建一个新的 ReportHandler 实例。
func NewReportHandler(linker ReportLinker) *ReportHandler {
	return &ReportHandler{linker: linker}
}

// GetReportURL 处理 GET /admin/reports/*object
// object 是重建任务返回的 archiveObject，只允许 reindex/ 前缀下的对象。
func (h *ReportHandler) GetReportURL(c *gin.Context) {
	object := strings.TrimPrefix(c.Param("object"), "/")
	if !strings.HasPrefix(object, "reindex/") || strings.Contains(object, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的报告对象", "data": nil})
		return
	}

	url, err := h.linker.GetPresignedURL(c.Request.Context(), object, reportLinkExpiry)
	if err != nil {
		log.Errorf("[ReportHandler] 生成报告下载链接失败, object: %s, error: %v", object, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "生成下载链接失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success", "data": gin.H{
		"object":    object,
		"url":       url,
		"expiresIn": int(reportLinkExpiry.Seconds()),
	}})
}
