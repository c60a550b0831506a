package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"problem-search-go/internal/service"
	"problem-search-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// closeWait 为发送关闭帧后等待客户端回应的时间
	closeWait = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，鉴权由 AuthMiddleware 完成
	},
}

// ProgressMessage 是推送给客户端的进度消息。
type ProgressMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// DoneMessage 是任务结束时推送的最后一条消息。
type DoneMessage struct {
	Type          string `json:"type"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	ArchiveObject string `json:"archiveObject,omitempty"`
}

// ReindexHandler 通过 WebSocket 触发全量重建并推送进度。
type ReindexHandler struct {
	reindexService service.ReindexService
}

// NewReindexHandler 创建一个新的 ReindexHandler 实例。
func NewReindexHandler(reindexService service.ReindexService) *ReindexHandler {
	return &ReindexHandler{reindexService: reindexService}
}

// wsReporter 把进度写到 WebSocket。连接断开后写入失败只记录一次日志，任务继续执行。
type wsReporter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	broken bool
}

func (r *wsReporter) send(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		return
	}
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := r.conn.WriteJSON(v); err != nil {
		log.Warnf("[ReindexHandler] 推送进度失败, 后续进度只写日志: %v", err)
		r.broken = true
	}
}

// markBroken 在读循环发现连接已断开时调用，之后的进度不再写入连接。
func (r *wsReporter) markBroken(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.broken && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Warnf("[ReindexHandler] WebSocket 连接已断开, 任务继续执行: %v", err)
	}
	r.broken = true
}

func (r *wsReporter) Report(message string) {
	log.Infof("[Reindexer] %s", message)
	r.send(ProgressMessage{Type: "progress", Message: message})
}

// Stream 处理 GET /admin/reindex?domainId=，domainId 为空时重建全部域。
func (h *ReindexHandler) Stream(c *gin.Context) {
	domainID := c.Query("domainId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("[ReindexHandler] 重建任务已连接, domainId: '%s'", domainID)
	reporter := &wsReporter{conn: conn}

	// 读循环：客户端不发送数据，但关闭帧和 ping 需要读取才会被处理
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				reporter.markBroken(err)
				return
			}
		}
	}()

	// 客户端断开不中止任务
	ctx := context.WithoutCancel(c.Request.Context())
	report, err := h.reindexService.Reindex(ctx, domainID, reporter)

	done := DoneMessage{Type: "done", Success: report.Success, ArchiveObject: report.ArchiveObject}
	if err != nil {
		done.Error = err.Error()
		if errors.Is(err, service.ErrReindexRunning) {
			log.Warnf("[ReindexHandler] 已有重建任务在运行, 拒绝新的请求")
		}
	}
	reporter.send(done)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	select {
	case <-readDone:
	case <-time.After(closeWait):
	}
}
