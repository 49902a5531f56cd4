package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ProdHub/internal/modules/user/application/dto/request"
	"ProdHub/internal/modules/user/application/dto/respond"
	"ProdHub/internal/modules/user/domain/entity"
	"ProdHub/internal/modules/user/domain/repository"
	"ProdHub/pkg/util"
	"ProdHub/pkg/util/myjwt"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errUserExists   = xerr.New(xerr.Conflict, "用户已存在")
	errLoginFailed  = xerr.New(xerr.Unauthorized, "用户名或密码错误")
	errUserDisabled = xerr.New(xerr.Forbidden, "账号已停用")
)

type UserAccountService struct {
	repo repository.UserAccountRepository
}

func NewUserAccountService(repo repository.UserAccountRepository) *UserAccountService {
	return &UserAccountService{repo: repo}
}

func (s *UserAccountService) Register(ctx context.Context, req request.RegisterRequest) (*respond.RegisterRespond, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	username := strings.TrimSpace(req.Username)
	if tenantID == "" || username == "" || req.Password == "" {
		return nil, xerr.ErrParam
	}

	if _, err := s.repo.GetByTenantAndUsername(ctx, tenantID, username); err == nil {
		return nil, errUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		zlog.Error("查询用户失败", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	now := time.Now()
	user := &entity.UserAccount{
		UserUuid:     util.GenerateShortUUID(),
		TenantId:     tenantID,
		Username:     username,
		Nickname:     strings.TrimSpace(req.Nickname),
		PasswordHash: util.Sha256Hex(req.Password),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		zlog.Error("创建用户失败", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	zlog.Info("用户注册成功", zap.String("tenant_id", tenantID), zap.String("user_uuid", user.UserUuid))
	return &respond.RegisterRespond{
		UserUUID: user.UserUuid,
		TenantID: user.TenantId,
		Username: user.Username,
		Nickname: user.Nickname,
	}, nil
}

func (s *UserAccountService) Login(ctx context.Context, req request.LoginRequest) (*respond.LoginRespond, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	username := strings.TrimSpace(req.Username)
	if tenantID == "" || username == "" || req.Password == "" {
		return nil, xerr.ErrParam
	}

	user, err := s.repo.GetByTenantAndUsername(ctx, tenantID, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errLoginFailed
		}
		zlog.Error("查询用户失败", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if user.PasswordHash != util.Sha256Hex(req.Password) {
		return nil, errLoginFailed
	}
	if user.Status != 0 {
		return nil, errUserDisabled
	}

	token, err := myjwt.GenerateToken(user.TenantId, user.UserUuid, user.Username)
	if err != nil {
		zlog.Error("签发 token 失败", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	return &respond.LoginRespond{
		Token:    token,
		UserUUID: user.UserUuid,
		TenantID: user.TenantId,
		Username: user.Username,
		Nickname: user.Nickname,
	}, nil
}

func (s *UserAccountService) Info(ctx context.Context, userUUID string) (*respond.UserInfoRespond, error) {
	if strings.TrimSpace(userUUID) == "" {
		return nil, xerr.ErrParam
	}
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.NotFound, "用户不存在")
		}
		zlog.Error("查询用户失败", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return &respond.UserInfoRespond{
		UserUUID: user.UserUuid,
		TenantID: user.TenantId,
		Username: user.Username,
		Nickname: user.Nickname,
		IsAdmin:  user.IsAdmin == 1,
	}, nil
}
