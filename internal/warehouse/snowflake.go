package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/metricdeck/internal/query"
	"github.com/hugh/metricdeck/pkg/config"
	"github.com/snowflakedb/gosnowflake"
)

// Runner executes SQL against the warehouse and returns ordered rows. The
// core only depends on this interface; tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, sqlText string) ([]query.Row, error)
}

// Snowflake runs queries through the official driver. Authentication is
// either password-based or external-browser SSO, per configuration.
type Snowflake struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSnowflake(cfg *config.SnowflakeConfig, log *slog.Logger) (*Snowflake, error) {
	sfCfg := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	}
	if strings.EqualFold(cfg.Authenticator, "externalbrowser") {
		sfCfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	}

	dsn, err := gosnowflake.DSN(sfCfg)
	if err != nil {
		return nil, fmt.Errorf("building snowflake dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}

	return &Snowflake{db: db, log: log}, nil
}

func (s *Snowflake) Run(ctx context.Context, sqlText string) ([]query.Row, error) {
	s.log.Debug("executing warehouse query")

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("executing warehouse query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	var out []query.Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}

		row := make(query.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}

	if out == nil {
		out = []query.Row{}
	}
	s.log.Info("warehouse query finished", "rows", len(out))
	return out, nil
}

func (s *Snowflake) Close() error {
	return s.db.Close()
}
