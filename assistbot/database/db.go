package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goassist-bot/goassist/assistbot/database/models"
)

const defaultConnTimeout = 5 * time.Second

// Config selects and parameterizes the durable backend. Backend "sqlite"
// uses a single database file at Path; "postgres" uses the connection
// fields.
type Config struct {
	Backend  string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	PoolSize int
}

// DB wraps the bun handle plus, for Postgres, the pgx pool used for
// health checks. SQLite has no pool; the single file is the database.
type DB struct {
	bunDB *bun.DB
	pool  *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	switch cfg.Backend {
	case "sqlite":
		return newSQLite(ctx, cfg)
	case "postgres":
		return newPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

func newSQLite(ctx context.Context, cfg Config) (*DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?cache=shared", cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A file database serializes writes itself; more than one connection
	// just produces SQLITE_BUSY under load.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := bunDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	slog.Info("Opened sqlite database",
		slog.String("type", "db"),
		slog.String("path", cfg.Path))
	return &DB{bunDB: bunDB}, nil
}

func newPostgres(ctx context.Context, cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn + "&connect_timeout=5")
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database server unreachable: %w", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	slog.Info("Connected to postgres database",
		slog.String("type", "db"),
		slog.String("database", cfg.Database))
	return &DB{bunDB: bunDB, pool: pool}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return fmt.Errorf("pgxpool ping failed: %w", err)
		}
	}
	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates all tables and indexes. Tables are created in
// foreign-key order; everything is IF NOT EXISTS so restarts are cheap.
func (db *DB) InitializeSchema(ctx context.Context) error {
	if _, err := db.bunDB.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	if _, err := db.bunDB.NewCreateTable().
		Model((*models.BotConfig)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create bot_configs table: %w", err)
	}

	children := []struct {
		model any
		name  string
	}{
		{(*models.CommandLog)(nil), "command_logs"},
		{(*models.UserReview)(nil), "user_reviews"},
		{(*models.ApiUsage)(nil), "api_usage"},
	}
	for _, child := range children {
		if _, err := db.bunDB.NewCreateTable().
			Model(child.model).
			IfNotExists().
			ForeignKey(`("bot_config_id") REFERENCES "bot_configs" ("id")`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", child.name, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*models.BotConfig)(nil), "idx_bot_configs_user_id", []string{"user_id"}},
		{(*models.BotConfig)(nil), "idx_bot_configs_guild_id", []string{"guild_id", "user_id"}},
		{(*models.CommandLog)(nil), "idx_command_logs_bot_config_id", []string{"bot_config_id", "executed_at"}},
		{(*models.UserReview)(nil), "idx_user_reviews_bot_config_id", []string{"bot_config_id"}},
		{(*models.ApiUsage)(nil), "idx_api_usage_bot_config_id", []string{"bot_config_id"}},
	}
	for _, idx := range indexes {
		if _, err := db.bunDB.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
