package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// CredentialSlot is one row of the credential_slots table.
type CredentialSlot struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName implements gorm's Tabler.
func (CredentialSlot) TableName() string {
	return "credential_slots"
}

// SQLStore keeps the slots as rows of a relational table, on SQLite or
// PostgreSQL via GORM.
type SQLStore struct {
	db      *gorm.DB
	dialect string
}

// NewSQLiteStore opens (or creates) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("credentials: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	// WAL lets a concurrent reader proceed while a refresh writes; busy_timeout
	// covers two CLI processes touching the file at once.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return openSQL(sqlite.Open(dsn), "sqlite", nil)
}

// NewPostgresStore connects to PostgreSQL.
func NewPostgresStore(cfg PostgresConfig) (*SQLStore, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" {
		return nil, errors.New("credentials: postgres host, database and user are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return openSQL(postgres.Open(cfg.DSN()), "postgres", &cfg)
}

func openSQL(dialector gorm.Dialector, dialect string, pg *PostgresConfig) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if pg != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		if pg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(pg.MaxOpenConns)
		}
		if pg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(pg.MaxIdleConns)
		}
	}

	if err := db.AutoMigrate(&CredentialSlot{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Dialect returns "sqlite" or "postgres".
func (s *SQLStore) Dialect() string {
	return s.dialect
}

func (s *SQLStore) Read(ctx context.Context) (*Credentials, error) {
	var rows []CredentialSlot
	if err := s.db.WithContext(ctx).Where("key IN ?", allSlots).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read credential slots: %w", err)
	}

	slots := make(map[string]string, len(rows))
	for _, r := range rows {
		slots[r.Key] = r.Value
	}
	return fromSlots(slots), nil
}

func (s *SQLStore) Write(ctx context.Context, creds *Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}

	slots, err := toSlots(creds)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rows := make([]CredentialSlot, 0, len(allSlots))
	for _, key := range allSlots {
		rows = append(rows, CredentialSlot{Key: key, Value: slots[key], UpdatedAt: now})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			return fmt.Errorf("write credential slots: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key IN ?", allSlots).Delete(&CredentialSlot{}).Error; err != nil {
			return fmt.Errorf("clear credential slots: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
