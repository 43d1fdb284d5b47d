package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"warehousebot/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver type.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the reference tables (users, counterparties, places) and
// the append-only record tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY,
				username TEXT NOT NULL,
				display_name TEXT NOT NULL DEFAULT '',
				warehouse INTEGER NOT NULL DEFAULT 0,
				documents INTEGER NOT NULL DEFAULT 0,
				vehicles INTEGER NOT NULL DEFAULT 0,
				invoices INTEGER NOT NULL DEFAULT 0,
				admin INTEGER NOT NULL DEFAULT 0,
				active INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE IF NOT EXISTS counterparties (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE IF NOT EXISTS places (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				zone TEXT NOT NULL DEFAULT '',
				active INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE TABLE IF NOT EXISTS movements (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				op_date TEXT NOT NULL,
				op_time TEXT NOT NULL,
				op_type TEXT NOT NULL,
				counterparty TEXT NOT NULL DEFAULT '',
				operation_id TEXT NOT NULL,
				position_number INTEGER NOT NULL,
				quantity INTEGER NOT NULL,
				position_note TEXT NOT NULL DEFAULT '',
				photo1 TEXT NOT NULL DEFAULT '',
				photo2 TEXT NOT NULL DEFAULT '',
				photo3 TEXT NOT NULL DEFAULT '',
				photo4 TEXT NOT NULL DEFAULT '',
				photo5 TEXT NOT NULL DEFAULT '',
				general_comment TEXT NOT NULL DEFAULT '',
				employee TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'NEW',
				first_of_operation INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_movements_operation ON movements(operation_id)`,
			`CREATE INDEX IF NOT EXISTS idx_movements_date ON movements(op_date)`,
			`CREATE TABLE IF NOT EXISTS vehicles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				op_date TEXT NOT NULL,
				op_time TEXT NOT NULL,
				direction TEXT NOT NULL,
				vehicle_id TEXT NOT NULL,
				photos TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				employee TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_vehicles_date ON vehicles(op_date)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				op_date TEXT NOT NULL,
				op_time TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				counterparty TEXT NOT NULL DEFAULT '',
				photos TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				employee TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_date ON documents(op_date)`,
			`CREATE TABLE IF NOT EXISTS invoices (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				op_date TEXT NOT NULL,
				file_name TEXT NOT NULL,
				file_link TEXT NOT NULL DEFAULT '',
				comment TEXT NOT NULL DEFAULT '',
				employee TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS new_products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				op_date TEXT NOT NULL,
				op_time TEXT NOT NULL,
				employee TEXT NOT NULL,
				photos TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				product_type TEXT NOT NULL DEFAULT ''
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT NOT NULL,
				username VARCHAR(255) NOT NULL,
				display_name VARCHAR(255) NOT NULL DEFAULT '',
				warehouse TINYINT(1) NOT NULL DEFAULT 0,
				documents TINYINT(1) NOT NULL DEFAULT 0,
				vehicles TINYINT(1) NOT NULL DEFAULT 0,
				invoices TINYINT(1) NOT NULL DEFAULT 0,
				admin TINYINT(1) NOT NULL DEFAULT 0,
				active TINYINT(1) NOT NULL DEFAULT 1,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS counterparties (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				name VARCHAR(255) NOT NULL,
				active TINYINT(1) NOT NULL DEFAULT 1,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS places (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				name VARCHAR(255) NOT NULL,
				zone VARCHAR(255) NOT NULL DEFAULT '',
				active TINYINT(1) NOT NULL DEFAULT 1,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS movements (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				op_date VARCHAR(10) NOT NULL,
				op_time VARCHAR(8) NOT NULL,
				op_type VARCHAR(32) NOT NULL,
				counterparty VARCHAR(255) NOT NULL DEFAULT '',
				operation_id VARCHAR(128) NOT NULL,
				position_number INT NOT NULL,
				quantity INT NOT NULL,
				position_note TEXT,
				photo1 TEXT, photo2 TEXT, photo3 TEXT, photo4 TEXT, photo5 TEXT,
				general_comment TEXT,
				employee VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'NEW',
				first_of_operation TINYINT(1) NOT NULL DEFAULT 0,
				PRIMARY KEY (id),
				INDEX idx_movements_operation (operation_id),
				INDEX idx_movements_date (op_date)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS vehicles (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				op_date VARCHAR(10) NOT NULL,
				op_time VARCHAR(8) NOT NULL,
				direction VARCHAR(8) NOT NULL,
				vehicle_id VARCHAR(255) NOT NULL,
				photos TEXT,
				comment TEXT,
				employee VARCHAR(255) NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_vehicles_date (op_date)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS documents (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				op_date VARCHAR(10) NOT NULL,
				op_time VARCHAR(8) NOT NULL,
				doc_type VARCHAR(255) NOT NULL,
				counterparty VARCHAR(255) NOT NULL DEFAULT '',
				photos TEXT,
				comment TEXT,
				employee VARCHAR(255) NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_documents_date (op_date)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS invoices (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				op_date VARCHAR(10) NOT NULL,
				file_name VARCHAR(512) NOT NULL,
				file_link TEXT,
				comment TEXT,
				employee VARCHAR(255) NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS new_products (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				op_date VARCHAR(10) NOT NULL,
				op_time VARCHAR(8) NOT NULL,
				employee VARCHAR(255) NOT NULL,
				photos TEXT,
				description TEXT,
				product_type VARCHAR(255) NOT NULL DEFAULT '',
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
