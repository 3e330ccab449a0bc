package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the annotations table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const q = `
CREATE TABLE IF NOT EXISTS annotations (
  image              TEXT        NOT NULL PRIMARY KEY,
  ts                 TIMESTAMPTZ NOT NULL,
  industry           TEXT        NOT NULL DEFAULT '',
  detections         JSONB       NOT NULL,
  manual_corrections JSONB       NOT NULL,
  status             TEXT        NOT NULL
);`
	_, err := db.ExecContext(ctx, q)
	return err
}
