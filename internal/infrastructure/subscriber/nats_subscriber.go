package subscriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/profilehub/backend/internal/application/ingest"
	"github.com/profilehub/backend/internal/domain/profile"
	"github.com/profilehub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NatsSubscriber consumes customer lifecycle events from a JetStream stream.
// Every subject pattern is subscribed under one shared queue group, so each
// message reaches exactly one instance of the service. Delivery is
// at-least-once: processed and rejected outcomes acknowledge the message,
// failed outcomes negatively acknowledge it so the broker redelivers.
// Messages are handled synchronously in subscription order; throughput
// scales by running more instances, not by fanning out inside one.
type NatsSubscriber struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	processor ingest.EventProcessor
	metrics   *ingest.Metrics
	cfg       config.NatsConfig
	logger    *zap.Logger
	subs      []*nats.Subscription
}

// NewNatsSubscriber validates subject patterns and connects to the bus.
// An invalid pattern is a fatal configuration error; broker unavailability
// is not, the client keeps reconnecting per config.
func NewNatsSubscriber(cfg config.NatsConfig, processor ingest.EventProcessor, metrics *ingest.Metrics, logger *zap.Logger) (*NatsSubscriber, error) {
	for _, subject := range cfg.Subjects {
		if err := config.ValidateSubject(subject); err != nil {
			return nil, err
		}
	}

	log := logger.Named("subscriber")
	conn, err := nats.Connect(strings.Join(cfg.URLs, ","),
		nats.Name(cfg.ClientName),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("bus disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("bus reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("bus connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to message bus: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	s := &NatsSubscriber{
		conn:      conn,
		js:        js,
		processor: processor,
		metrics:   metrics,
		cfg:       cfg,
		logger:    log,
	}
	if err := s.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// ensureStream creates the event stream when it does not exist yet.
// Concurrent instances race here; losing the race is fine, the stream is
// looked up again on subscribe.
func (s *NatsSubscriber) ensureStream() error {
	_, err := s.js.StreamInfo(s.cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("look up stream %q: %w", s.cfg.Stream, err)
	}

	_, err = s.js.AddStream(&nats.StreamConfig{
		Name:      s.cfg.Stream,
		Subjects:  s.cfg.Subjects,
		Retention: nats.LimitsPolicy,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("create stream %q: %w", s.cfg.Stream, err)
	}
	s.logger.Info("stream ready",
		zap.String("stream", s.cfg.Stream),
		zap.Strings("subjects", s.cfg.Subjects),
	)
	return nil
}

// Start subscribes every configured subject pattern under the queue group.
// The queue group doubles as the durable consumer name, so restarts resume
// from the last acknowledged message.
func (s *NatsSubscriber) Start(ctx context.Context) error {
	for _, subject := range s.cfg.Subjects {
		sub, err := s.js.QueueSubscribe(subject, s.cfg.QueueGroup, func(msg *nats.Msg) {
			s.handle(ctx, msg)
		},
			nats.ManualAck(),
			nats.AckExplicit(),
			nats.BindStream(s.cfg.Stream),
		)
		if err != nil {
			return fmt.Errorf("subscribe %q: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("subscribed",
			zap.String("subject", subject),
			zap.String("queue_group", s.cfg.QueueGroup),
		)
	}
	return nil
}

// handle processes one bus message. Undecodable payloads are terminated
// after logging; retrying malformed bytes can never succeed. Only a failed
// outcome leaves the message unacknowledged for redelivery.
func (s *NatsSubscriber) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()
	s.metrics.Received.Add(1)

	env, err := profile.DecodeEnvelope(msg.Data)
	if err != nil {
		s.metrics.DecodeErrors.Add(1)
		s.logger.Warn("dropping undecodable message",
			zap.String("subject", msg.Subject),
			zap.Int("bytes", len(msg.Data)),
			zap.Error(err),
		)
		s.terminate(msg)
		return
	}

	outcome, err := s.processor.Process(ctx, env)
	fields := []zap.Field{
		zap.String("subject", msg.Subject),
		zap.String("event_type", env.EventType),
		zap.String("customer_id", env.CustomerID),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", time.Since(start)),
	}
	switch outcome {
	case ingest.OutcomeFailed:
		s.logger.Error("event failed, requesting redelivery", append(fields, zap.Error(err))...)
		if nakErr := msg.Nak(); nakErr != nil {
			s.logger.Warn("nak failed, broker will redeliver on ack timeout", zap.Error(nakErr))
		}
	case ingest.OutcomeRejected:
		s.logger.Warn("event rejected", fields...)
		s.ack(msg)
	default:
		s.logger.Info("event handled", fields...)
		s.ack(msg)
	}
}

func (s *NatsSubscriber) ack(msg *nats.Msg) {
	if err := msg.Ack(); err != nil {
		s.logger.Warn("ack failed, message may be redelivered", zap.Error(err))
	}
}

// terminate acknowledges a message as permanently unprocessable
func (s *NatsSubscriber) terminate(msg *nats.Msg) {
	if err := msg.Term(); err != nil {
		s.logger.Warn("terminate failed, message may be redelivered", zap.Error(err))
	}
}

// Drain stops taking new messages, waits for in-flight handlers, and closes
// the connection.
func (s *NatsSubscriber) Drain() error {
	s.logger.Info("draining subscriptions")
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("drain bus connection: %w", err)
	}
	return nil
}

// Connected reports whether the bus connection is currently up
func (s *NatsSubscriber) Connected() bool {
	return s.conn.IsConnected()
}
