package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события заявок в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронного продюсера Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// publishEvent сериализует событие и отправляет его в топик
func (p *Producer) publishEvent(topic string, event models.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithField("event_type", event.Type).Error("Failed to publish event")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}

func (p *Producer) publishQuoteEvent(eventType models.EventType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	return p.publishEvent(p.topics.Quotes, models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// PublishQuoteCreated публикует событие новой заявки (полный снимок заявки)
func (p *Producer) PublishQuoteCreated(quote *models.Quote) error {
	return p.publishQuoteEvent(models.EventTypeQuoteCreated, quote)
}

// PublishQuoteStatusChanged публикует событие смены статуса заявки
func (p *Producer) PublishQuoteStatusChanged(change *models.QuoteStatusChangedData) error {
	return p.publishQuoteEvent(models.EventTypeQuoteStatusChanged, change)
}

// PublishQuoteDeleted публикует событие удаления заявки
func (p *Producer) PublishQuoteDeleted(quoteID uuid.UUID) error {
	return p.publishQuoteEvent(models.EventTypeQuoteDeleted, models.QuoteDeletedData{QuoteID: quoteID})
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
