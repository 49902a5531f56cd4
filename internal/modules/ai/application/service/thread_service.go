package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/pkg/zlog"

	"go.uber.org/zap"
)

// ThreadConfig 运行轮询参数
type ThreadConfig struct {
	PollBase   time.Duration // 首次轮询间隔
	PollMax    time.Duration // 单次间隔上限
	RunTimeout time.Duration // 墙钟上限
}

// ThreadService 线程管理：每个 用户+租户 一条托管线程；
// AwaitRun 以指数退避轮询运行状态直到终态或超时。
type ThreadService struct {
	threads repository.ThreadRecordRepository
	hosted  repository.HostedAIClient
	cfg     ThreadConfig
}

func NewThreadService(threads repository.ThreadRecordRepository, hosted repository.HostedAIClient, cfg ThreadConfig) *ThreadService {
	if cfg.PollBase <= 0 {
		cfg.PollBase = 500 * time.Millisecond
	}
	if cfg.PollMax <= 0 {
		cfg.PollMax = 5 * time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	return &ThreadService{threads: threads, hosted: hosted, cfg: cfg}
}

// GetUserThread 查已有线程；没有返回空串
func (s *ThreadService) GetUserThread(ctx context.Context, tenantID, userID string) (string, error) {
	rec, err := s.threads.FindByUser(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.ThreadId, nil
}

// CreateUserThread 新建托管线程并落库
func (s *ThreadService) CreateUserThread(ctx context.Context, tenantID, userID string) (string, error) {
	threadID, err := s.hosted.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	rec := &rag.AIThreadRecord{
		TenantId: tenantID,
		UserId:   userID,
		ThreadId: threadID,
	}
	if err := s.threads.Save(ctx, rec); err != nil {
		return "", err
	}
	return threadID, nil
}

// EnsureThread 有则复用，无则新建
func (s *ThreadService) EnsureThread(ctx context.Context, tenantID, userID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	if tenantID == "" || userID == "" {
		return "", errors.New("tenant id / user id is empty")
	}
	threadID, err := s.GetUserThread(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	if threadID != "" {
		return threadID, nil
	}
	return s.CreateUserThread(ctx, tenantID, userID)
}

// AwaitRun 轮询运行直到终态；caller 的 ctx 取消会中断等待。
// 间隔从 PollBase 起逐次翻倍，单次不超过 PollMax，总等待不超过 RunTimeout。
func (s *ThreadService) AwaitRun(ctx context.Context, threadID, runID string) (*repository.RunState, error) {
	deadline := time.Now().Add(s.cfg.RunTimeout)
	attempt := 0
	for {
		state, err := s.hosted.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		if state.Terminal() {
			switch state.Status {
			case repository.RunStatusCompleted:
				return state, nil
			default:
				zlog.Warn("hosted run ended abnormally",
					zap.String("threadId", threadID),
					zap.String("runId", runID),
					zap.String("status", state.Status),
					zap.String("lastError", state.LastError))
				return state, rag.Errf(rag.ErrRunFailed, "run %s ended with status %s: %s", runID, state.Status, state.LastError)
			}
		}

		delay := s.backoffDelay(attempt)
		attempt++
		if time.Now().Add(delay).After(deadline) {
			return state, rag.Errf(rag.ErrRunTimeout, "run %s still %s after %s", runID, state.Status, s.cfg.RunTimeout)
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoffDelay 第 attempt 次等待时长：base 翻倍递增，封顶 PollMax
func (s *ThreadService) backoffDelay(attempt int) time.Duration {
	d := s.cfg.PollBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.PollMax {
			return s.cfg.PollMax
		}
	}
	if d > s.cfg.PollMax {
		return s.cfg.PollMax
	}
	return d
}
