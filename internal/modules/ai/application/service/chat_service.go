package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/internal/modules/ai/infrastructure/pipeline"
	"ProdHub/internal/modules/ai/infrastructure/queue"
	"ProdHub/pkg/redis"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// StreamEvent SSE 流式事件
type StreamEvent struct {
	Event string      // delta / done / error
	Data  interface{} // delta: {token: "..."}, done: {answer: "..."}, error: {error: "..."}
}

const sessionSyncTTL = 30 * time.Minute

// ChatService 对话编排：线程路径（托管助手）、检索直答路径与手动索引入口
type ChatService struct {
	threads          *ThreadService
	export           *ExportService
	retrieve         *RetrieveService
	hosted           repository.HostedAIClient
	chatModel        model.BaseChatModel
	queue            repository.JobQueue
	worker           *queue.EmbedWorker
	embeddingEnabled bool
}

func NewChatService(
	threads *ThreadService,
	export *ExportService,
	retrieve *RetrieveService,
	hosted repository.HostedAIClient,
	chatModel model.BaseChatModel,
	jobQueue repository.JobQueue,
	worker *queue.EmbedWorker,
	embeddingEnabled bool,
) *ChatService {
	return &ChatService{
		threads:          threads,
		export:           export,
		retrieve:         retrieve,
		hosted:           hosted,
		chatModel:        chatModel,
		queue:            jobQueue,
		worker:           worker,
		embeddingEnabled: embeddingEnabled,
	}
}

// Chat 线程路径：确保线程与知识同步，提交消息并等待托管运行完成
func (s *ChatService) Chat(ctx context.Context, tenantID, userID, message string) (*respond.ChatRespond, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, xerr.ErrParam
	}
	if s.hosted == nil || s.threads == nil || s.export == nil {
		return nil, xerr.ErrDisabled
	}

	s.ensureSessionSynced(ctx, tenantID, userID)

	assistantRec, err := s.export.AssistantForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if assistantRec == nil {
		return nil, fmt.Errorf("no assistant for tenant %s", tenantID)
	}

	threadID, err := s.threads.EnsureThread(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.hosted.AddMessage(ctx, threadID, message); err != nil {
		return nil, err
	}
	runID, err := s.hosted.CreateRun(ctx, threadID, assistantRec.AssistantId)
	if err != nil {
		return nil, err
	}

	if _, err := s.threads.AwaitRun(ctx, threadID, runID); err != nil {
		return nil, err
	}

	answer, err := s.hosted.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &respond.ChatRespond{Answer: answer, ThreadID: threadID}, nil
}

// Answer 检索直答路径：TopK 检索 + 单次补全，不经过托管线程
func (s *ChatService) Answer(ctx context.Context, tenantID, question string) (*respond.ChatRespond, error) {
	messages, err := s.buildAnswerMessages(ctx, tenantID, question)
	if err != nil {
		return nil, err
	}
	out, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, rag.Errf(rag.ErrModelError, "%v", err)
	}
	return &respond.ChatRespond{Answer: out.Content}, nil
}

// AnswerStream 检索直答的流式版本
func (s *ChatService) AnswerStream(ctx context.Context, tenantID, question string) (<-chan StreamEvent, error) {
	messages, err := s.buildAnswerMessages(ctx, tenantID, question)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan StreamEvent, 100)
	go func() {
		defer close(eventChan)

		streamReader, err := s.chatModel.Stream(ctx, messages)
		if err != nil {
			eventChan <- StreamEvent{Event: "error", Data: map[string]string{"error": err.Error()}}
			return
		}
		defer streamReader.Close()

		var full strings.Builder
		for {
			chunk, err := streamReader.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				eventChan <- StreamEvent{Event: "error", Data: map[string]string{"error": err.Error()}}
				return
			}
			if chunk.Content == "" {
				continue
			}
			full.WriteString(chunk.Content)
			eventChan <- StreamEvent{Event: "delta", Data: map[string]string{"token": chunk.Content}}
		}
		eventChan <- StreamEvent{Event: "done", Data: map[string]string{"answer": full.String()}}
	}()
	return eventChan, nil
}

// Index 手动补偿：同步驱动嵌入 worker 消费一批任务
func (s *ChatService) Index(ctx context.Context, tenantID string, maxJobs int) (*respond.IndexRespond, error) {
	if !s.embeddingEnabled || s.worker == nil {
		return nil, xerr.ErrDisabled
	}
	res, err := s.worker.ProcessBatch(ctx, maxJobs)
	if err != nil {
		return nil, err
	}
	depth := int64(0)
	if s.queue != nil {
		depth, _ = s.queue.Depth(ctx)
	}
	zlog.Info("manual index done",
		zap.String("tenantId", tenantID),
		zap.Int("received", res.Received),
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("abandoned", res.Abandoned),
		zap.Int64("depth", depth))
	return &respond.IndexRespond{
		Received:  res.Received,
		Processed: res.Processed,
		Failed:    res.Failed,
		Abandoned: res.Abandoned,
		Depth:     depth,
	}, nil
}

// QueueDepth 当前队列积压
func (s *ChatService) QueueDepth(ctx context.Context) (int64, error) {
	if s.queue == nil {
		return 0, errors.New("job queue is nil")
	}
	return s.queue.Depth(ctx)
}

func (s *ChatService) buildAnswerMessages(ctx context.Context, tenantID, question string) ([]*schema.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, xerr.ErrParam
	}
	if s.chatModel == nil {
		return nil, xerr.ErrDisabled
	}

	contextBlock := ""
	if s.embeddingEnabled && s.retrieve != nil {
		res, err := s.retrieve.Retrieve(ctx, &pipeline.RetrieveRequest{
			TenantID: tenantID,
			Question: question,
			TopK:     5,
		})
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, hit := range res.Chunks {
			fmt.Fprintf(&b, "[%s/%s]\n%s\n", hit.EntityType, hit.EntityID, hit.Content)
		}
		contextBlock = b.String()
	}

	system := "You are a product knowledge assistant. Answer based on the provided records; say so when the records do not cover the question."
	if contextBlock != "" {
		system += "\n\nRecords:\n" + contextBlock
	}
	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(question),
	}, nil
}

// ensureSessionSynced 每个会话只做一次知识同步；抢不到标记说明本会话已同步过
func (s *ChatService) ensureSessionSynced(ctx context.Context, tenantID, userID string) {
	key := fmt.Sprintf("ai:chat:synced:%s:%s", tenantID, userID)
	if redis.IsConnected() {
		ok, err := redis.SetNX(ctx, key, "1", sessionSyncTTL)
		if err == nil && !ok {
			return
		}
	}
	if _, err := s.export.EnsureTenantDataSynced(ctx, tenantID); err != nil {
		if errors.Is(err, rag.ErrSyncConflict) {
			zlog.Warn("session sync hit conflict, will retry next session", zap.String("tenantId", tenantID))
			return
		}
		zlog.Warn("session sync failed", zap.String("tenantId", tenantID), zap.Error(err))
		// 同步失败时释放标记，下次对话重试
		if redis.IsConnected() {
			_, _ = redis.Del(ctx, key)
		}
	}
}
