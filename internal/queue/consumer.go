package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// AuditLog writes one JSON line per patient event.
type AuditLog struct {
    log zerolog.Logger
}

func NewAuditLog(w io.Writer) *AuditLog {
    return &AuditLog{log: zerolog.New(w).With().Timestamp().Logger()}
}

// OpenAuditLog creates the parent directory of path if needed and opens
// the file for appending.  The caller closes the returned file.
func OpenAuditLog(path string) (*AuditLog, *os.File, error) {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, nil, fmt.Errorf("mkdir audit log dir: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return nil, nil, fmt.Errorf("open audit log: %w", err)
    }
    return NewAuditLog(f), f, nil
}

// Handle decodes one message body and records it.
func (a *AuditLog) Handle(body []byte) error {
    var ev PatientEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := ev.validate(); err != nil {
        return err
    }
    a.log.Info().
        Str("event_id", ev.ID).
        Str("action", string(ev.Action)).
        Uint64("patient_id", ev.PatientID).
        Uint64("actor_id", ev.ActorID).
        Str("actor_role", ev.ActorRole).
        Time("occurred_at", ev.OccurredAt).
        Msg("patient " + string(ev.Action))
    return nil
}

// Consumer reads patient events from the audit queue and hands them to
// an AuditLog.
type Consumer struct {
    URL   string
    Queue string
    Audit *AuditLog
    Log   zerolog.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("audit consumer: dial failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn().Err(err).Msg("audit consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn().Err(err).Msg("audit consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.Log.Info().Str("queue", c.Queue).Msg("audit consumer: listening")

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Audit.Handle(d.Body); err != nil {
                c.Log.Error().Err(err).Msg("audit consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
