package http

import (
	"strings"

	aiRequest "ProdHub/internal/modules/ai/application/dto/request"
	"ProdHub/internal/modules/ai/application/service"
	"ProdHub/pkg/back"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler 对话 HTTP Handler
type ChatHandler struct {
	chatSvc *service.ChatService
}

func NewChatHandler(chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// Chat 处理对话请求
//
// 路由: POST /ai/chat
// 鉴权: 需要 JWT（从 authed 分组继承）
// 请求体: ChatRequest；action 为 "index" 时触发手动索引
// 响应体: ChatRespond 或 IndexRespond
func (h *ChatHandler) Chat(c *gin.Context) {
	var req aiRequest.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	userID := strings.TrimSpace(c.GetString("user_id"))
	if tenantID == "" || userID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	if req.Action == "index" {
		data, err := h.chatSvc.Index(c.Request.Context(), tenantID, req.MaxJobs)
		aiResult(c, data, err)
		return
	}

	data, err := h.chatSvc.Chat(c.Request.Context(), tenantID, userID, req.Message)
	if err != nil {
		zlog.Warn("chat failed", zap.String("tenantId", tenantID), zap.Error(err))
	}
	aiResult(c, data, err)
}

// ChatStream 检索直答的 SSE 流式接口
//
// 路由: POST /ai/chat/stream
// 事件: delta / done / error
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req aiRequest.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	events, err := h.chatSvc.AnswerStream(c.Request.Context(), tenantID, req.Message)
	if err != nil {
		aiResult(c, nil, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for ev := range events {
		c.SSEvent(ev.Event, ev.Data)
		c.Writer.Flush()
	}
}
