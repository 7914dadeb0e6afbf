package database

import (
	"database/sql"
	"fmt"
	"time"

	"incident-reporter/config"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

// Database handles all database operations
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &Database{db: db}, nil
}

// dsn builds the MySQL connection string. clientFoundRows makes
// RowsAffected report matched rows rather than changed ones; the
// notification store reads 0 affected rows as "row does not exist",
// which breaks for no-op updates under the driver default.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// NewDatabaseFromConn wraps an existing connection. Used by tests.
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// DB exposes the underlying database handle for wiring
func (d *Database) DB() *sql.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// InitSchema creates the necessary database tables if they don't exist.
// Registered and anonymous reporters live in parallel tables so the
// anonymous path never carries a durable account linkage.
func (d *Database) InitSchema() error {
	log.Info("Initializing incident reporter database schema...")

	tables := []struct {
		name string
		ddl  string
	}{
		{"user_reports", `
		CREATE TABLE IF NOT EXISTS user_reports(
			id VARCHAR(36) NOT NULL,
			type VARCHAR(64) NOT NULL,
			description TEXT NOT NULL,
			location VARCHAR(512) NOT NULL,
			latitude DOUBLE NULL,
			longitude DOUBLE NULL,
			photos JSON NULL,
			user_id VARCHAR(64) NOT NULL,
			responder_id VARCHAR(64) NOT NULL,
			status ENUM('Pending','In-progress','Resolved') NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX user_id_index (user_id),
			INDEX responder_id_index (responder_id)
		)`},
		{"device_reports", `
		CREATE TABLE IF NOT EXISTS device_reports(
			id VARCHAR(36) NOT NULL,
			type VARCHAR(64) NOT NULL,
			description TEXT NOT NULL,
			location VARCHAR(512) NOT NULL,
			latitude DOUBLE NULL,
			longitude DOUBLE NULL,
			photos JSON NULL,
			device_id VARCHAR(128) NOT NULL,
			responder_id VARCHAR(64) NOT NULL,
			status ENUM('Pending','In-progress','Resolved') NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX device_id_index (device_id),
			INDEX responder_id_index (responder_id)
		)`},
		{"user_notifications", `
		CREATE TABLE IF NOT EXISTS user_notifications(
			id VARCHAR(36) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			report_id VARCHAR(36) NOT NULL,
			kind ENUM('new','update') NOT NULL,
			` + "`read`" + ` BOOL NOT NULL DEFAULT FALSE,
			read_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX user_id_index (user_id),
			INDEX read_index (` + "`read`" + `)
		)`},
		{"device_notifications", `
		CREATE TABLE IF NOT EXISTS device_notifications(
			id VARCHAR(36) NOT NULL,
			device_id VARCHAR(128) NOT NULL,
			title VARCHAR(255) NOT NULL,
			report_id VARCHAR(36) NOT NULL,
			kind ENUM('new','update') NOT NULL,
			` + "`read`" + ` BOOL NOT NULL DEFAULT FALSE,
			read_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX device_id_index (device_id),
			INDEX read_index (` + "`read`" + `)
		)`},
		{"accounts", `
		CREATE TABLE IF NOT EXISTS accounts(
			id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			role ENUM('user','responder','admin') NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX role_index (role)
		)`},
	}

	for _, table := range tables {
		if _, err := d.db.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
		log.Infof("%s table created/verified", table.name)
	}

	return nil
}
