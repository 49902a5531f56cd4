package kafka

import (
	"strings"
	"time"

	"github.com/IBM/sarama"
)

const (
	producerRetry  = 10
	retryBackoff   = 100 * time.Millisecond
	sessionTimeout = 30 * time.Second
)

func baseConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = strings.TrimSpace(clientID)
	return sc
}
