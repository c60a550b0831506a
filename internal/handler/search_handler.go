// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"problem-search-go/internal/service"
	"problem-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// SearchProblems 处理题目搜索请求：GET /problems/search?domainId=&q=&limit=&skip=
func (h *SearchHandler) SearchProblems(c *gin.Context) {
	domainID := c.Query("domainId")
	query := c.Query("q")
	if domainID == "" {
		log.Warnf("[SearchHandler] 搜索请求失败: domainId 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "domainId 不能为空", "data": nil})
		return
	}

	var opts service.SearchOptions
	var ok bool
	if opts.Limit, ok = optionalInt(c, "limit"); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 limit 参数", "data": nil})
		return
	}
	if opts.Skip, ok = optionalInt(c, "skip"); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 skip 参数", "data": nil})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), domainID, query, opts)
	if err != nil {
		log.Errorf("[SearchHandler] 搜索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "搜索失败", "data": nil})
		return
	}

	log.Infof("[SearchHandler] 搜索成功, domainId: %s, q: '%s', total: %d, 返回 %d 条结果", domainID, query, result.Total, len(result.Hits))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": result, "message": "success"})
}

// optionalInt 读取可选的整数查询参数，参数不存在时返回 nil。
func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw, exists := c.GetQuery(name)
	if !exists || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
