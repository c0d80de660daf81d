package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/EditorialHub/internal/storage"
	"github.com/segmentio/kafka-go"
)

// ArticleEvent 新文章入库后发送到 Kafka 的消息体
type ArticleEvent struct {
	ID              string    `json:"id"`
	Section         string    `json:"section"`
	URL             string    `json:"url"`
	OriginalTitle   string    `json:"originalTitle"`
	TranslatedTitle string    `json:"translatedTitle"`
	SourceLocale    string    `json:"sourceLocale"`
	TargetLocale    string    `json:"targetLocale"`
	CreatedAt       time.Time `json:"createdAt"`
}

func NewArticleEvent(a *storage.Article) ArticleEvent {
	return ArticleEvent{
		ID:              a.ID,
		Section:         a.Section,
		URL:             a.URL,
		OriginalTitle:   a.OriginalTitle,
		TranslatedTitle: a.TranslatedTitle,
		SourceLocale:    a.SourceLocale,
		TargetLocale:    a.TargetLocale,
		CreatedAt:       a.CreatedAt,
	}
}

// MessageWriter 是 kafka.Writer 的最小子集，测试时可替换
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 把新入库的文章发布到 Kafka topic
type Producer struct {
	writer MessageWriter
}

func NewProducer(broker, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	log.Printf("kafka producer initialized for broker %s, topic %s", broker, topic)
	return &Producer{writer: writer}
}

func NewProducerWithWriter(w MessageWriter) *Producer {
	return &Producer{writer: w}
}

// Publish 以文章 ID 作为 key，保证同一篇文章落在同一个分区
func (p *Producer) Publish(ctx context.Context, a *storage.Article) error {
	payload, err := json.Marshal(NewArticleEvent(a))
	if err != nil {
		return fmt.Errorf("marshal article event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(a.ID),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write article event: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
