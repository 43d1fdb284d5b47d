package main

import (
	"context"
	"log"
	"os"
	"time"

	"warehousebot/internal/api"
	"warehousebot/internal/blobstore"
	"warehousebot/internal/config"
	"warehousebot/internal/directory"
	"warehousebot/internal/flow"
	"warehousebot/internal/recordstore"
	"warehousebot/internal/redis"
	"warehousebot/internal/staging"
	"warehousebot/internal/storage"
	"warehousebot/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("WAREHOUSEBOT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("WAREHOUSEBOT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// Redis only warm-starts the directory cache; running without it is fine.
	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Printf("redis unavailable, continuing without cache warm-start: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	files, err := staging.NewArea(cfg.BasicConfig.StagingDir)
	if err != nil {
		log.Fatalf("init staging area: %v", err)
	}
	if n := files.PurgeAll(); n > 0 {
		log.Printf("staging: purged %d leftover file(s) from previous run", n)
	}
	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	cleanInterval := time.Duration(cfg.BasicConfig.StagingCleanInterval) * time.Minute
	if cleanInterval <= 0 {
		cleanInterval = 15 * time.Minute
	}
	maxAge := time.Duration(cfg.BasicConfig.StagingMaxAge) * time.Minute
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	files.StartCleaner(cleanCtx, cleanInterval, maxAge)

	cacheTTL := time.Duration(cfg.Limits.CacheRefreshMinutes) * time.Minute
	dir := directory.NewService(db, rdb, cacheTTL, cfg.BasicConfig.AdminUsername)
	records := recordstore.NewStore(db, cfg.Tables)
	blobs := blobstore.NewArchive(cfg.BasicConfig.ArchiveDir, cfg.BasicConfig.LinkBaseURL)

	idleTimeout := time.Duration(cfg.BasicConfig.SessionIdleMinutes) * time.Minute
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}

	engine := flow.NewEngine(dir, records, blobs, files, cfg)
	workers := worker.NewManager(engine, idleTimeout)
	defer workers.Shutdown()

	handlers := api.NewHandler(workers, files)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
