package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Postgres wraps the SQL connection pool together with its configuration.
type Postgres struct {
	DB     *sql.DB
	config *Config
}

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database DSN must be specified")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	return nil
}

func Connect(dsn string) (*Postgres, error) {
	config := DefaultConfig()
	config.DSN = dsn
	return ConnectWithConfig(config)
}

func ConnectWithConfig(config *Config) (*Postgres, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sqlDB, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	// Retry the initial ping; the database may still be coming up.
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
		err = sqlDB.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}

		if attempt < config.MaxRetries {
			waitTime := config.RetryDelay * time.Duration(attempt)
			log.Printf("connection attempt %d/%d failed: %v, retrying in %v",
				attempt, config.MaxRetries, err, waitTime)
			time.Sleep(waitTime)
		}
	}
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w",
			config.MaxRetries, err)
	}

	log.Printf("postgres connection established (max open conns: %d)", config.MaxOpenConns)

	return &Postgres{DB: sqlDB, config: config}, nil
}

func (p *Postgres) Close() {
	if p.DB != nil {
		p.DB.Close()
		log.Println("postgres connection closed")
	}
}

func (p *Postgres) Health() error {
	return p.HealthWithContext(context.Background())
}

func (p *Postgres) HealthWithContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (p *Postgres) GetConfig() *Config {
	return p.config
}
