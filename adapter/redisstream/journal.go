package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xframe"
)

// Journal appends dispatched message records to a Redis stream.
type Journal struct {
	cfg    Config
	client *redis.Client

	closed atomic.Bool

	metrics *journalMetrics
}

// journalMetrics tracks performance telemetry
type journalMetrics struct {
	appended     atomic.Uint64
	appendErrors atomic.Uint64
	pipelines    atomic.Uint64
}

var _ xframe.Journal = (*Journal)(nil)

// NewJournal connects to Redis and verifies the connection with PING.
func NewJournal(cfg Config) (*Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:       cfg.Addr,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
		PoolSize:   cfg.PoolSize,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client, cfg.PingTimeout); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Journal{
		cfg:     cfg,
		client:  client,
		metrics: &journalMetrics{},
	}, nil
}

// Append writes records with XADD, pipelined so a batch costs one round trip.
func (j *Journal) Append(ctx context.Context, recs ...*xframe.Record) error {
	if j.closed.Load() {
		return xframe.ErrJournalClosed
	}
	if len(recs) == 0 {
		return nil
	}

	pipe := j.client.Pipeline()
	n := 0
	for _, r := range recs {
		if r == nil {
			continue
		}
		args := &redis.XAddArgs{
			Stream: j.cfg.Stream,
			ID:     "*", // Let Redis generate ID
			Values: encode(r),
		}

		// Approximate trimming to keep stream bounded
		if j.cfg.MaxLenApprox > 0 {
			args.MaxLen = j.cfg.MaxLenApprox
			args.Approx = true
		}

		pipe.XAdd(ctx, args)
		n++
	}
	if n == 0 {
		return nil
	}

	j.metrics.pipelines.Add(1)
	if _, err := pipe.Exec(ctx); err != nil {
		j.metrics.appendErrors.Add(uint64(n))
		return err
	}
	j.metrics.appended.Add(uint64(n))
	return nil
}

// Replay reads up to count records between stream IDs start and end
// ("-" and "+" for the whole stream), oldest first.
func (j *Journal) Replay(ctx context.Context, start, end string, count int64) ([]*xframe.Record, error) {
	if start == "" {
		start = "-"
	}
	if end == "" {
		end = "+"
	}

	var (
		msgs []redis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = j.client.XRangeN(ctx, j.cfg.Stream, start, end, count).Result()
	} else {
		msgs, err = j.client.XRange(ctx, j.cfg.Stream, start, end).Result()
	}
	if err != nil {
		return nil, err
	}

	out := make([]*xframe.Record, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, decode(m))
	}
	return out, nil
}

// Len returns the number of entries in the stream.
func (j *Journal) Len(ctx context.Context) (int64, error) {
	return j.client.XLen(ctx, j.cfg.Stream).Result()
}

// Stream returns the stream key the journal writes to.
func (j *Journal) Stream() string { return j.cfg.Stream }

// Close releases the Redis client.
func (j *Journal) Close(_ context.Context) error {
	if j.closed.Swap(true) {
		return nil // Already closed
	}
	return j.client.Close()
}

// Stats is journal telemetry.
type Stats struct {
	Appended     uint64
	AppendErrors uint64
	Pipelines    uint64
}

// Stats returns current journal metrics.
func (j *Journal) Stats() Stats {
	return Stats{
		Appended:     j.metrics.appended.Load(),
		AppendErrors: j.metrics.appendErrors.Load(),
		Pipelines:    j.metrics.pipelines.Load(),
	}
}

func encode(r *xframe.Record) map[string]any {
	return map[string]any{
		fieldID:         r.ID,
		fieldKind:       string(r.Kind),
		fieldCodec:      r.Codec,
		fieldPayload:    r.Payload, // raw payload bytes (binary-safe)
		fieldProducedAt: r.ProducedAt.UnixNano(),
		fieldDelivered:  flag(r.Delivered),
		fieldConsumed:   flag(r.Consumed),
	}
}

func decode(m redis.XMessage) *xframe.Record {
	r := &xframe.Record{ID: m.ID}
	if v, ok := m.Values[fieldID].(string); ok && v != "" {
		r.ID = v
	}
	if v, ok := m.Values[fieldKind].(string); ok {
		r.Kind = xframe.Kind(v)
	}
	if v, ok := m.Values[fieldCodec].(string); ok {
		r.Codec = v
	}
	if v, ok := m.Values[fieldPayload].(string); ok {
		r.Payload = []byte(v)
	}
	if v, ok := m.Values[fieldProducedAt].(string); ok {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.ProducedAt = time.Unix(0, ns)
		}
	}
	r.Delivered = m.Values[fieldDelivered] == "1"
	r.Consumed = m.Values[fieldConsumed] == "1"
	return r
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func ping(c *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}

	return nil
}
