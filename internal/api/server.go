package api

import (
	"context"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"vrptw/internal/config"
	"vrptw/internal/store"
	"vrptw/internal/sysinfo"
	"vrptw/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Catalog *config.Catalog
	Pub     *webhooks.Publisher
	Hooks   *webhooks.Queue
	System  sysinfo.SysInfo

	slots *semaphore.Weighted // bounds concurrently solving runs
	wg    sync.WaitGroup
}

// NewServer wires the server from the environment. If DATABASE_URL is unset
// the in-memory store is used; if REDIS_URL is unset events stay in process.
func NewServer() (*Server, error) {
	cat, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	var st store.Store
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn == "" {
		st = store.NewMemory()
	} else {
		sq, err := store.Open(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sq.MigrateDir("db/migrations"); err != nil {
				return nil, err
			}
		}
		st = sq
	}
	var broker EventBroker = NewBroker()
	if url := os.Getenv("REDIS_URL"); url != "" {
		if rb, err := NewRedisBroker(url); err == nil {
			broker = rb
		} else {
			log.Printf("warning: redis broker unavailable, using in-process events: %v", err)
		}
	}
	return NewServerWith(st, broker, cat), nil
}

// NewServerWith builds a server from explicit dependencies.
func NewServerWith(st store.Store, broker EventBroker, cat *config.Catalog) *Server {
	q := webhooks.NewQueue()
	slots := config.EnvInt("VRPTW_MAX_CONCURRENT_RUNS", runtime.NumCPU())
	if slots < 1 {
		slots = 1
	}
	return &Server{
		Store:   st,
		Broker:  broker,
		Catalog: cat,
		Pub:     webhooks.NewPublisher(q),
		Hooks:   q,
		System:  sysinfo.Collect(),
		slots:   semaphore.NewWeighted(int64(slots)),
	}
}

// NewWebhookWorker creates a background worker for callback deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Hooks)
}

// Wait blocks until every background run has finished or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
