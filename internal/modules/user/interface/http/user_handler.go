package handler

import (
	"ProdHub/internal/modules/user/application/dto/request"
	"ProdHub/internal/modules/user/application/service"
	"ProdHub/pkg/back"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserAccountService
}

func NewUserHandler(svc *service.UserAccountService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Register(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Login(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *UserHandler) Info(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}
	data, err := h.svc.Info(c.Request.Context(), userID)
	back.Result(c, data, err)
}
