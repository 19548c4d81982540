// Package messaging 将领域事件经 Outbox 表中转后推送到 Kafka。
package messaging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/optionspricing/pkg/mq"
	"github.com/wyfcoding/pkg/messagequeue"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
)

// NewOutboxPublisher 创建事务性事件发布器。
// 事件先随业务事务写入 Outbox 表，由转发器异步推送，保证业务与事件的原子性。
func NewOutboxPublisher(db *gorm.DB, logger *slog.Logger) messagequeue.EventPublisher {
	mgr := outbox.NewManager(db, logger)
	outbox.SetDefault(mgr)
	return outbox.NewPublisher(mgr)
}

// NewOutboxRelay 创建 Outbox 转发器，周期扫描待发送消息并推送到 Kafka。
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, logger *slog.Logger, batchSize int, interval time.Duration) *outbox.Processor {
	mgr := outbox.Default()
	if mgr == nil {
		mgr = outbox.NewManager(db, logger)
		outbox.SetDefault(mgr)
	}
	return outbox.NewProcessor(mgr, producer.Push, batchSize, interval)
}

// AutoMigrate 建 Outbox 表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&outbox.Message{})
}
