package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
)

const (
	LoanTopic         = "loan-events"
	LoanConsumerGroup = "biblioteca-loan-events"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

// Enabled reports whether brokers are configured. The event stream is
// optional, the service runs without it.
func (c Config) Enabled() bool { return len(c.Addrs) > 0 }

const (
	EventLoanIssued       = "ISSUED"
	EventLoanReturned     = "RETURNED"
	EventLoanReturnedLate = "RETURNED_LATE"
)

// LoanEvent is published on every successful loan issue and return.
type LoanEvent struct {
	LoanID   int       `json:"loanId"`
	MemberID int       `json:"memberId"`
	CopyID   int       `json:"copyId"`
	Event    string    `json:"event"`
	Date     time.Time `json:"date"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume runs the consumer-group session loop until ctx is done.
func Consume(ctx context.Context, consumer sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topic string) error {
	for {
		if err := consumer.Consume(ctx, []string{topic}, handler); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
