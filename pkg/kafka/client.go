// Package kafka 提供了与 Kafka 消息队列交互的功能。
// 消费上传层发布的"文档已提取"事件，将文档登记为待处理。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"doc-vector-go/internal/config"
	"doc-vector-go/pkg/database"
	"doc-vector-go/pkg/log"
	"doc-vector-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskHandler defines the interface for any service that can register an
// ingested document. This decouples the consumer from the concrete service.
type TaskHandler interface {
	HandleDocumentIngested(ctx context.Context, task tasks.DocumentIngestedTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceDocumentIngested 发布一个文档提取完成事件（供上传层同进程部署时使用）。
func ProduceDocumentIngested(task tasks.DocumentIngestedTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}

	return producer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(task.DocumentID),
			Value: taskBytes,
		},
	)
}

// StartConsumer 启动一个 Kafka 消费者来登记文档事件。
func StartConsumer(cfg config.KafkaConfig, handler TaskHandler) {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "doc-vector-go-consumer"
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.DocumentIngestedTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("收到文档事件: DocumentID=%s, ProjectID=%s, FileName=%s", task.DocumentID, task.ProjectID, task.FileName)
		if err := handler.HandleDocumentIngested(context.Background(), task); err != nil {
			log.Errorf("登记文档事件失败: DocumentID=%s, Error: %v", task.DocumentID, err)
			// 使用 Redis 计数失败次数，达到阈值后提交 offset 终止重试
			attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.DocumentID)
			attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
			if incErr == nil {
				_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
			}
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			if attempts >= 3 {
				log.Errorf("文档事件多次失败(>=3)，提交 offset 终止重试: DocumentID=%s", task.DocumentID)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
		} else {
			// 清理失败计数并提交 offset
			_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:attempts:%s", task.DocumentID)).Err()
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}
