package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/adgroup-autopilot/internal/archive"
	"github.com/ignite/adgroup-autopilot/internal/config"
	"github.com/ignite/adgroup-autopilot/internal/domain"
	"github.com/ignite/adgroup-autopilot/internal/pkg/distlock"
	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
	"github.com/ignite/adgroup-autopilot/internal/pkg/retry"
	"github.com/ignite/adgroup-autopilot/internal/repository/postgres"
	"github.com/ignite/adgroup-autopilot/internal/service/autopilot"
)

const lockKey = "autopilot:nightly"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the budget job once and exit")
	flag.Parse()

	log.Println("Starting autopilot budget worker...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Redis is optional; without it the lock falls back to a Postgres advisory lock.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unavailable (%v), using Postgres advisory lock", err)
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := autopilot.NewService(postgres.NewAutopilotRepo(db), autopilot.Config{
		ChunkSize:    cfg.Autopilot.ChunkSize,
		Retry:        retry.Policy{MaxRetries: cfg.Autopilot.MaxChunkRetries, BaseDelay: 2 * time.Second, MaxDelay: time.Minute},
		WriteResults: cfg.Autopilot.WriteResults,
		Sources:      domain.SourceIDMap{Outbrain: cfg.Sources.OutbrainID, Yahoo: cfg.Sources.YahooID},
	})
	if cfg.Archive.Enabled {
		arch, err := archive.NewS3Archiver(ctx, archive.Config{
			Bucket:   cfg.Archive.S3Bucket,
			Prefix:   cfg.Archive.Prefix,
			Region:   cfg.Archive.S3Region,
			Compress: cfg.Archive.Compress,
		})
		if err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		svc.SetArchiver(arch)
	}
	lock := distlock.NewLock(rdb, db, lockKey, cfg.Autopilot.LockTTL())

	if !cfg.Autopilot.WriteResults {
		log.Println("Dry run: calculated budgets will not be written")
	}

	if *once {
		if err := runJob(ctx, svc, lock); err != nil {
			os.Exit(1)
		}
		return
	}

	go schedule(ctx, svc, lock, cfg.Autopilot.RunHourUTC)
	log.Printf("Worker running, budget job scheduled daily at %02d:00 UTC", cfg.Autopilot.RunHourUTC)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	log.Println("Worker stopped")
}

func schedule(ctx context.Context, svc *autopilot.Service, lock distlock.DistLock, hour int) {
	for {
		next := autopilot.NextRun(time.Now(), hour)
		logger.Info("next budget job scheduled", "at", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		_ = runJob(ctx, svc, lock)
		// Step past the scheduled minute so NextRun moves to tomorrow.
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Minute):
		}
	}
}

func runJob(ctx context.Context, svc *autopilot.Service, lock distlock.DistLock) error {
	report, err := svc.RunLocked(ctx, lock)
	switch {
	case errors.Is(err, autopilot.ErrJobLocked):
		logger.Info("budget job skipped, another worker holds the lock")
		return nil
	case err != nil && report == nil:
		logger.Error("budget job failed", "error", err)
		return err
	case err != nil:
		logger.Error("budget job finished with failed chunks", "run_id", report.RunID, "failed_chunks", report.FailedChunks, "error", err)
		return err
	}
	logger.Info("budget job complete",
		"run_id", report.RunID,
		"ad_groups", report.AdGroupsProcessed,
		"redistributed", report.CampaignsRedistributed,
		"clamped", report.CampaignsClamped,
		"warnings", report.Warnings,
	)
	return nil
}
