// cmd/journal/main.go is an asynchronous consumer that pops room lifecycle
// records from the Redis journal queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/cache"
	"github.com/openarena/muster/internal/database"
)

// JournalService drains the Redis queue in batches and flushes them into the
// room_events table.
type JournalService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu sync.Mutex
	batch   []cache.RoomEventRecord
}

func newJournalService() *JournalService {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	return &JournalService{
		redisClient: redis.NewClient(&redis.Options{Addr: addr}),
		queueName:   getEnv("JOURNAL_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   getEnvInt("JOURNAL_BATCH_SIZE", 20),
		flushDelay:  time.Duration(getEnvInt("JOURNAL_FLUSH_MS", 500)) * time.Millisecond,
	}
}

func (js *JournalService) run(ctx context.Context) {
	go js.readLoop(ctx)
	go js.flushLoop(ctx)
	<-ctx.Done()
	js.flush(context.Background())
}

// readLoop blocks on the queue and accumulates records; a full batch flushes
// immediately.
func (js *JournalService) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := js.redisClient.BLPop(ctx, 2*time.Second, js.queueName).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				log.Warnf("blpop error: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name, res[1] the payload
		var rec cache.RoomEventRecord
		if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
			log.Warnf("dropping malformed journal record: %v", err)
			continue
		}

		js.batchMu.Lock()
		js.batch = append(js.batch, rec)
		full := len(js.batch) >= js.batchSize
		js.batchMu.Unlock()

		if full {
			js.flush(ctx)
		}
	}
}

// flushLoop flushes whatever accumulated every flushDelay.
func (js *JournalService) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(js.flushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			js.flush(ctx)
		}
	}
}

func (js *JournalService) flush(ctx context.Context) {
	js.batchMu.Lock()
	if len(js.batch) == 0 {
		js.batchMu.Unlock()
		return
	}
	pending := js.batch
	js.batch = nil
	js.batchMu.Unlock()

	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO room_events (room_id, event_type, actor_user_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		`
		for _, rec := range pending {
			payload, _ := json.Marshal(rec.Payload)
			ts := time.UnixMilli(rec.Timestamp)
			if _, err := tx.Exec(ctx, q, rec.RoomID, rec.EventType, rec.ActorUserID, payload, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("failed to flush %d journal records: %v", len(pending), err)
		// Put them back so nothing is lost; duplicates are acceptable.
		js.batchMu.Lock()
		js.batch = append(pending, js.batch...)
		js.batchMu.Unlock()
		return
	}
	log.Infof("flushed %d journal records", len(pending))
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func main() {
	database.ConnectDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	js := newJournalService()
	log.Infof("journal consumer draining %s", js.queueName)
	js.run(ctx)
}
