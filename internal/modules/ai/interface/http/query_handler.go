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

// QueryHandler RAG 召回查询 HTTP Handler
type QueryHandler struct {
	retrieveSvc *service.RetrieveService
}

func NewQueryHandler(retrieveSvc *service.RetrieveService) *QueryHandler {
	return &QueryHandler{retrieveSvc: retrieveSvc}
}

// Query 处理 RAG 召回查询请求
//
// 路由: POST /ai/rag/query
// 鉴权: 需要 JWT（从 authed 分组继承）
// 请求体: QueryRequest
// 响应体: QueryRespond
func (h *QueryHandler) Query(c *gin.Context) {
	var req aiRequest.QueryRequest
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
	data, err := h.retrieveSvc.Query(c.Request.Context(), tenantID, req)
	if err != nil {
		zlog.Warn("rag query failed", zap.String("tenantId", tenantID), zap.Error(err))
	}
	aiResult(c, data, err)
}
