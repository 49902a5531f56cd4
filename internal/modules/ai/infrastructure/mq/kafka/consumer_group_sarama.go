package kafka

import (
	"context"
	"errors"
	"strings"

	"ProdHub/internal/modules/ai/infrastructure/mq"
	"ProdHub/pkg/zlog"

	"github.com/IBM/sarama"
)

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
}

type changeConsumer struct {
	group  sarama.ConsumerGroup
	topics []string
}

func NewConsumer(cfg ConsumerConfig) (mq.Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka consumer group id is empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka topics is empty")
	}

	sc := baseConfig(cfg.ClientID)
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Group.Rebalance.Timeout = sessionTimeout
	sc.Consumer.Group.Session.Timeout = sessionTimeout

	group, err := sarama.NewConsumerGroup(cfg.Brokers, strings.TrimSpace(cfg.GroupID), sc)
	if err != nil {
		return nil, err
	}
	return &changeConsumer{group: group, topics: cfg.Topics}, nil
}

// Run 阻塞消费直到 ctx 取消，rebalance 后自动重新加入
func (c *changeConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	claimed := &claimRunner{handler: handler}

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if err := c.group.Consume(ctx, c.topics, claimed); err != nil {
			return err
		}
	}
}

func (c *changeConsumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type claimRunner struct {
	handler mq.Handler
}

func (claimRunner) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (claimRunner) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (r *claimRunner) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		msg := mq.Message{
			Topic:   m.Topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: fromRecordHeaders(m.Headers),
		}
		if err := r.handler.Handle(sess.Context(), msg); err != nil {
			// 不提交位点，留待重投
			zlog.Warn("kafka message handle failed: " + err.Error())
			continue
		}
		sess.MarkMessage(m, "")
	}
	return nil
}

func fromRecordHeaders(headers []*sarama.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = string(h.Value)
	}
	return out
}
