// persistence/postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq" // PostgreSQL 驱动
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/wfunc/trexbooth/config"
	"github.com/wfunc/trexbooth/credentials"
)

const (
	DriverPQ  = "pq"
	DriverPGX = "pgx"
)

// SQLSTATE codes
const (
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
	codeForeignKeyViolation  = "23503"
)

// PostgresOpener opens Lakebase connections with lib/pq (default) or pgx.
func PostgresOpener(cfg config.DatabaseConfig) Opener {
	driverName := "postgres"
	if cfg.Driver == DriverPGX {
		// gorm's postgres driver falls back to pgx/stdlib when no name is given
		driverName = ""
	}

	return func(ctx context.Context, cred credentials.Credential) (*gorm.DB, error) {
		dialector := postgres.New(postgres.Config{
			DriverName: driverName,
			DSN:        PostgresDSN(cfg, cred),
		})
		return OpenDialector(ctx, dialector, cfg.ConnectTimeout, cfg.LogLevel)
	}
}

// PostgresDSN builds a key/value connection string understood by both lib/pq and pgx.
func PostgresDSN(cfg config.DatabaseConfig, cred credentials.Credential) string {
	parts := []string{
		"host=" + dsnValue(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"dbname=" + dsnValue(cfg.Name),
		"user=" + dsnValue(cred.Username),
		"password=" + dsnValue(cred.Token),
		"sslmode=" + dsnValue(cfg.SSLMode),
	}
	if secs := int(cfg.ConnectTimeout / time.Second); secs > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", secs))
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// OpenDialector opens dialector and pings it within timeout. The pool is
// capped at a single connection since every operation gets its own *gorm.DB.
func OpenDialector(ctx context.Context, dialector gorm.Dialector, timeout time.Duration, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormConfig(logLevel))
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func gormConfig(logLevel string) *gorm.Config {
	return &gorm.Config{
		Logger:               newGormLogger(logLevel),
		NamingStrategy:       namingStrategy{schema.NamingStrategy{IdentifierMaxLength: 63}},
		TranslateError:       true,
		DisableAutomaticPing: true,
	}
}

// namingStrategy names unique constraints <table>_<column>_key, the name
// Postgres gives an inline UNIQUE column, so tables created by plain DDL
// and tables created by AutoMigrate carry the same constraint.
type namingStrategy struct {
	schema.NamingStrategy
}

func (namingStrategy) UniqueName(table, column string) string {
	return table + "_" + column + "_key"
}

// 配置GORM日志
func newGormLogger(level string) gormlogger.Interface {
	lvl := gormlogger.Silent
	switch strings.ToLower(level) {
	case "error":
		lvl = gormlogger.Error
	case "warn":
		lvl = gormlogger.Warn
	case "info":
		lvl = gormlogger.Info
	}

	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func classifyConnectError(err error) string {
	switch sqlState(err) {
	case codeInvalidPassword, codeInvalidAuthorization:
		return OutcomeAuth
	default:
		return OutcomeError
	}
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || sqlState(err) == codeForeignKeyViolation
}
