package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"concord/internal/model"
)

// WriterConfig holds batching parameters.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns the standard batching parameters.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
	}
}

// WriterMetrics counts writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Writer accumulates message events and writes them to the messages
// table in batches.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	db *pgxpool.Pool

	batch       []messageRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

type messageRow struct {
	ID         int64
	ChannelID  int64
	GuildID    int64
	AuthorID   int64
	Content    string
	Timestamp  time.Time
	ReceivedAt int64
}

// NewWriter creates a message writer backed by the given pool.
func NewWriter(cfg WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]messageRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("message writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping message writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("message writer stopped")
	case <-ctx.Done():
		w.logger.Warn("message writer stop timed out")
	}

	// Final flush. The run context is cancelled by now, so the insert
	// rides on the caller's shutdown context instead.
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// Record queues one message for archiving. Safe to call from the
// dispatch goroutine; the insert itself happens on the flush path.
func (w *Writer) Record(msg model.Message) {
	row := w.transform(msg)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a message to its row form.
func (w *Writer) transform(msg model.Message) messageRow {
	return messageRow{
		ID:         int64(msg.ID),
		ChannelID:  int64(msg.ChannelID),
		GuildID:    int64(msg.GuildID),
		AuthorID:   int64(msg.Author.ID),
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
		ReceivedAt: time.Now().UnixMicro(),
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]messageRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed messages",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []messageRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO messages (id, channel_id, guild_id, author_id, content, created_at, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.ChannelID, r.GuildID, r.AuthorID, r.Content, r.Timestamp, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
