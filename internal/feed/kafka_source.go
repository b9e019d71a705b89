package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

const (
	eventTypeInsert = "INSERT"
	snapshotsTable  = "room_snapshots"
)

// KafkaSource читает события вставки снапшотов из топика. Сообщения,
// которые не удалось разобрать или провалившие валидацию, уходят в DLQ
// с заголовком error.
type KafkaSource struct {
	reader  *kafka.Reader
	dlq     *kafka.Writer
	handler SnapshotHandler
	logger  *slog.Logger
	topic   string
}

func NewKafkaSource(cfg *config.Config, handler SnapshotHandler, logger *slog.Logger) *KafkaSource {
	brokers := strings.Split(cfg.KafkaBrokers, ",")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.TopicSnapshots,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: 1 * time.Second,
		Logger:         kafka.LoggerFunc(logger.Debug),
		ErrorLogger:    kafka.LoggerFunc(logger.Error),
	})

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.TopicDeadLetters,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return &KafkaSource{
		reader:  reader,
		dlq:     dlq,
		handler: handler,
		logger:  logger,
		topic:   cfg.TopicSnapshots,
	}
}

func (s *KafkaSource) Start(ctx context.Context) {
	s.logger.Info("Запуск потребления снапшотов из Kafka",
		"topic", s.topic,
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Остановка потребления снапшотов из Kafka")
				return
			default:
				msg, err := s.reader.ReadMessage(ctx)
				if err != nil {
					s.logger.Error("Ошибка при чтении сообщения из Kafka",
						"error", err,
					)

					continue
				}

				if err := s.processMessage(ctx, &msg); err != nil {
					s.logger.Error("Ошибка при обработке сообщения",
						"offset", msg.Offset,
						"error", err,
					)
				}
			}
		}
	}()
}

func (s *KafkaSource) processMessage(ctx context.Context, msg *kafka.Message) error {
	var event models.SnapshotEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.sendToDLQ(ctx, msg.Value, fmt.Sprintf("ошибка десериализации: %s", err))
		return fmt.Errorf("ошибка при десериализации события: %w", err)
	}

	if err := validateEvent(&event); err != nil {
		s.sendToDLQ(ctx, msg.Value, err.Error())
		return err
	}

	if err := s.handler.HandleSnapshot(ctx, &event.Snapshot); err != nil {
		return fmt.Errorf("ошибка при обработке снапшота: %w", err)
	}

	return nil
}

func validateEvent(event *models.SnapshotEvent) error {
	if event.Type != eventTypeInsert {
		return fmt.Errorf("неожиданный тип события: %q", event.Type)
	}

	if event.Table != snapshotsTable {
		return fmt.Errorf("неожиданная таблица события: %q", event.Table)
	}

	if event.Snapshot.HotelID == "" || event.Snapshot.RoomType == "" {
		return fmt.Errorf("в снапшоте отсутствуют обязательные поля hotel_id/room_type")
	}

	return nil
}

func (s *KafkaSource) sendToDLQ(ctx context.Context, message []byte, errMsg string) {
	err := s.dlq.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: message,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(errMsg)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
		Time: time.Now(),
	})
	if err != nil {
		s.logger.Error("Ошибка при отправке сообщения в DLQ",
			"error", err,
		)

		return
	}

	s.logger.Info("Сообщение отправлено в DLQ",
		"reason", errMsg,
	)
}

func (s *KafkaSource) Stop() {
	if err := s.reader.Close(); err != nil {
		s.logger.Error("Ошибка при закрытии Kafka reader",
			"error", err,
		)
	}

	if err := s.dlq.Close(); err != nil {
		s.logger.Error("Ошибка при закрытии DLQ writer",
			"error", err,
		)
	}
}
