package http

import (
	"strings"

	aiRequest "ProdHub/internal/modules/ai/application/dto/request"
	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/application/service"
	"ProdHub/pkg/back"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 知识同步与队列运维 HTTP Handler
type AdminHandler struct {
	exportSvc *service.ExportService
	chatSvc   *service.ChatService
}

func NewAdminHandler(exportSvc *service.ExportService, chatSvc *service.ChatService) *AdminHandler {
	return &AdminHandler{exportSvc: exportSvc, chatSvc: chatSvc}
}

// Sync 立即同步当前租户知识到托管助手
//
// 路由: POST /ai/admin/sync
func (h *AdminHandler) Sync(c *gin.Context) {
	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}
	data, err := h.exportSvc.EnsureTenantDataSynced(c.Request.Context(), tenantID)
	if err != nil {
		zlog.Warn("manual sync failed", zap.String("tenantId", tenantID), zap.Error(err))
	}
	aiResult(c, data, err)
}

// Index 手动驱动嵌入队列消费一批
//
// 路由: POST /ai/admin/index
func (h *AdminHandler) Index(c *gin.Context) {
	var req aiRequest.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.MaxJobs = 0
	}
	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}
	data, err := h.chatSvc.Index(c.Request.Context(), tenantID, req.MaxJobs)
	aiResult(c, data, err)
}

// QueueStats 查询队列积压
//
// 路由: GET /ai/admin/queueStats
func (h *AdminHandler) QueueStats(c *gin.Context) {
	depth, err := h.chatSvc.QueueDepth(c.Request.Context())
	aiResult(c, &respond.QueueStatsRespond{Depth: depth}, err)
}
