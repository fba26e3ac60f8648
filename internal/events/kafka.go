package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

var (
	ErrQueueFull = errors.New("events: queue full")
	ErrClosed    = errors.New("events: publisher closed")
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	QueueSize    int           // 256 when zero
	WriteTimeout time.Duration // 5s when zero
	BatchTimeout time.Duration // 10ms when zero
	MaxFailures  uint32        // consecutive failures before the breaker opens, 5 when zero
	OpenTimeout  time.Duration // how long the breaker stays open, 30s when zero
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events and writes them from a single goroutine, keyed by user id so one
// conversation stays on one partition in order.
type KafkaPublisher struct {
	w       messageWriter
	cb      *gobreaker.CircuitBreaker
	queue   chan Event
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex // guards closed against sends on queue
	closed bool
	done   chan struct{}
}

func NewKafkaPublisher(cfg KafkaConfig, log *slog.Logger) *KafkaPublisher {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg, log)
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, log *slog.Logger) *KafkaPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	p := &KafkaPublisher{
		w:       w,
		queue:   make(chan Event, cfg.QueueSize),
		timeout: cfg.WriteTimeout,
		log:     log,
		done:    make(chan struct{}),
	}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka:" + cfg.Topic,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	})

	go p.loop()
	return p
}

// Publish enqueues ev. It never waits for the broker.
func (p *KafkaPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.write(ev); err != nil {
			p.log.Warn("event publish failed", "type", ev.Type, "user_id", ev.UserID, "err", err)
		}
	}
}

func (p *KafkaPublisher) write(ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.UserID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}

	_, err = p.cb.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		return nil, p.w.WriteMessages(ctx, msg)
	})
	return err
}

// Close drains queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}
