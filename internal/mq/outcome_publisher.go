package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/mr-tron/base58"

	"gas-relay-sol/internal/logic/sponsor"
	"gas-relay-sol/internal/pkg/logger"
	"gas-relay-sol/internal/utils"
)

// OutcomePublisher 把赞助结果事件异步发到 Kafka。
// Publish 永不阻塞响应路径：事件进入缓冲通道，满了直接丢弃并计数告警。
type OutcomePublisher struct {
	producer   *kafka.Producer
	topic      string
	partitions int32
	timeout    time.Duration
	events     chan sponsor.Event
	done       chan struct{}
}

// NewOutcomePublisher 创建结果事件发布器并启动后台发送循环
func NewOutcomePublisher(producer *kafka.Producer, topic string, partitions int, timeout time.Duration) *OutcomePublisher {
	if partitions <= 0 {
		partitions = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &OutcomePublisher{
		producer:   producer,
		topic:      topic,
		partitions: int32(partitions),
		timeout:    timeout,
		events:     make(chan sponsor.Event, 1024),
		done:       make(chan struct{}),
	}
	go p.loop()
	return p
}

// Publish 实现 sponsor.EventSink
func (p *OutcomePublisher) Publish(ev sponsor.Event) {
	select {
	case p.events <- ev:
	default:
		// 宁可丢审计事件也不反压请求路径
		logger.Warnf("[mq] outcome 事件缓冲已满，丢弃: digest=%s", ev.Digest)
	}
}

// Close 停止后台循环（不关闭 producer，归属在服务上下文）
func (p *OutcomePublisher) Close() {
	close(p.done)
}

func (p *OutcomePublisher) loop() {
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.events:
			if err := p.send(ev); err != nil {
				logger.Warnf("[mq] outcome 事件发送失败: digest=%s, err=%v", ev.Digest, err)
			}
		}
	}
}

// send 同步发送单条事件并等待 ack，按摘要选分区保证同一交易事件有序
func (p *OutcomePublisher) send(ev sponsor.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partition := int32(0)
	if raw, derr := base58.Decode(ev.Digest); derr == nil {
		partition = int32(utils.PartitionHashBytes(raw, uint32(p.partitions)))
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: partition,
		},
		Value: value,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce error: %w", err)
	}

	select {
	case e, ok := <-deliveryChan:
		if !ok {
			return fmt.Errorf("delivery channel closed unexpectedly")
		}
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("invalid message type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return msg.TopicPartition.Error
		}
		return nil
	case <-time.After(p.timeout):
		go safeDrain(deliveryChan)
		return fmt.Errorf("delivery timeout (>%v)", p.timeout)
	}
}

// safeDrain 确保 deliveryChan 被 drain，避免 Kafka 回调阻塞
func safeDrain(ch <-chan kafka.Event) {
	defer func() {
		_ = recover() // deliveryChan 已被回收导致 panic 的极端情况，吞掉
	}()
	select {
	case <-ch:
	case <-time.After(2 * time.Second): // 最多等 2 秒
	}
}
