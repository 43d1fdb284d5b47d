package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Tables      TableConfig               `json:"tables"`
	Limits      Limits                    `json:"limits"`
	// ProductTypes populates the new-product type choice list.
	ProductTypes []string `json:"product_types"`
	// DocumentTypes populates the document capture type choice list.
	DocumentTypes []string `json:"document_types"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// StagingDir holds files downloaded from the gateway until they are
	// archived or the owning draft is torn down.
	StagingDir string `json:"staging_dir"`
	// ArchiveDir is the root of the durable photo/document archive.
	ArchiveDir string `json:"archive_dir"`
	// LinkBaseURL prefixes shareable links returned for archived files.
	LinkBaseURL string `json:"link_base_url"`
	// AdminUsername is granted admin rights regardless of the directory flag.
	AdminUsername string `json:"admin_username"`
	// StagingCleanInterval and StagingMaxAge control the reaper for files
	// leaked by abandoned sessions, both in minutes.
	StagingCleanInterval int `json:"staging_clean_interval"`
	StagingMaxAge        int `json:"staging_max_age"`
	// SessionIdleMinutes bounds how long an inactive conversation keeps
	// its worker mailbox before the draft is abandoned.
	SessionIdleMinutes int `json:"session_idle_minutes"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// TableConfig carries user-facing deep links to the record tables.
type TableConfig struct {
	WarehouseURL string `json:"warehouse_url"`
	VehiclesURL  string `json:"vehicles_url"`
	DocumentsURL string `json:"documents_url"`
}

// Limits bounds draft accumulation. Zero values are replaced by defaults
// at load time, so the rest of the code can read them directly.
type Limits struct {
	MaxPhotosPerPosition int `json:"max_photos_per_position"`
	MaxPhotosNewProduct  int `json:"max_photos_new_product"`
	MaxPhotosDocument    int `json:"max_photos_document"`
	MaxPhotosVehicle     int `json:"max_photos_vehicle"`
	MaxPositions         int `json:"max_positions_per_operation"`
	MaxQuantity          int `json:"max_quantity"`
	MaxCommentLength     int `json:"max_comment_length"`
	CacheRefreshMinutes  int `json:"cache_refresh_minutes"`
	HistoryLimit         int `json:"history_limit"`
}

// DefaultLimits returns the bounds used when the config leaves them unset.
func DefaultLimits() Limits {
	return Limits{
		MaxPhotosPerPosition: 5,
		MaxPhotosNewProduct:  5,
		MaxPhotosDocument:    5,
		MaxPhotosVehicle:     10,
		MaxPositions:         30,
		MaxQuantity:          99999,
		MaxCommentLength:     1000,
		CacheRefreshMinutes:  30,
		HistoryLimit:         10,
	}
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.StagingDir == "" {
		return nil, fmt.Errorf("staging_dir must be configured")
	}
	if cfg.BasicConfig.ArchiveDir == "" {
		return nil, fmt.Errorf("archive_dir must be configured")
	}
	for _, dir := range []*string{&cfg.BasicConfig.StagingDir, &cfg.BasicConfig.ArchiveDir} {
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(filepath.Dir(absPath), *dir)
		}
	}

	cfg.Limits = fillLimits(cfg.Limits)
	if len(cfg.ProductTypes) == 0 {
		cfg.ProductTypes = DefaultProductTypes()
	}
	if len(cfg.DocumentTypes) == 0 {
		cfg.DocumentTypes = DefaultDocumentTypes()
	}
	return &cfg, nil
}

func DefaultProductTypes() []string {
	return []string{"Goods", "Packaging", "Equipment", "Other"}
}

func DefaultDocumentTypes() []string {
	return []string{"📥 Incoming invoice", "📤 Outgoing invoice", "Waybill", "Certificate", "Other"}
}

func fillLimits(l Limits) Limits {
	d := DefaultLimits()
	if l.MaxPhotosPerPosition <= 0 {
		l.MaxPhotosPerPosition = d.MaxPhotosPerPosition
	}
	if l.MaxPhotosNewProduct <= 0 {
		l.MaxPhotosNewProduct = d.MaxPhotosNewProduct
	}
	if l.MaxPhotosDocument <= 0 {
		l.MaxPhotosDocument = d.MaxPhotosDocument
	}
	if l.MaxPhotosVehicle <= 0 {
		l.MaxPhotosVehicle = d.MaxPhotosVehicle
	}
	if l.MaxPositions <= 0 {
		l.MaxPositions = d.MaxPositions
	}
	if l.MaxQuantity <= 0 {
		l.MaxQuantity = d.MaxQuantity
	}
	if l.MaxCommentLength <= 0 {
		l.MaxCommentLength = d.MaxCommentLength
	}
	if l.CacheRefreshMinutes <= 0 {
		l.CacheRefreshMinutes = d.CacheRefreshMinutes
	}
	if l.HistoryLimit <= 0 {
		l.HistoryLimit = d.HistoryLimit
	}
	return l
}
