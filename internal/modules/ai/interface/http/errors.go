package http

import (
	"errors"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/pkg/back"
	"ProdHub/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// aiResult 在统一返回入口之上补充领域错误到响应码的映射
func aiResult(c *gin.Context, data interface{}, err error) {
	if err == nil {
		back.Success(c, data)
		return
	}
	switch {
	case errors.Is(err, rag.ErrMalformedJob):
		back.Error(c, xerr.BadRequest, err.Error())
	case errors.Is(err, rag.ErrTenantIsolation):
		back.Error(c, xerr.InternalServerError, "tenant isolation violation")
	case errors.Is(err, rag.ErrSyncConflict):
		back.Error(c, xerr.Conflict, err.Error())
	case errors.Is(err, rag.ErrRunTimeout):
		back.Error(c, xerr.Timeout, err.Error())
	case errors.Is(err, rag.ErrRunFailed), errors.Is(err, rag.ErrModelError):
		back.Error(c, xerr.ServiceUnavailable, err.Error())
	default:
		back.Result(c, data, err)
	}
}
