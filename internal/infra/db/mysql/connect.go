package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  image              VARCHAR(512) NOT NULL PRIMARY KEY,
  ts                 DATETIME(6)  NOT NULL,
  industry           VARCHAR(64)  NOT NULL DEFAULT '',
  detections         MEDIUMTEXT   NOT NULL,
  manual_corrections MEDIUMTEXT   NOT NULL,
  status             VARCHAR(32)  NOT NULL
);`
	_, err := db.ExecContext(ctx, q)
	return err
}
