package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/justicebus/offlinesync/internal/common"
	"github.com/justicebus/offlinesync/internal/dbx"
	"github.com/justicebus/offlinesync/internal/store/migrations"
)

// SQLiteStore is the primary storage tier. All partitions share one
// kv_records table; insertion order is the rowid (seq) order.
type SQLiteStore struct {
	db *sql.DB
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenSQLite opens (or creates) the database at dsn and applies migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, unavailable("migrate", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, partition, key string, value []byte) (string, error) {
	if key != "" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO kv_records (partition, key, value) VALUES (?, ?, ?)
			ON CONFLICT (partition, key) WHERE key <> '' DO UPDATE SET value = excluded.value
		`, partition, key, value)
		if err != nil {
			return "", unavailable(fmt.Sprintf("put %s/%s", partition, key), err)
		}
		return key, nil
	}

	// Auto-assigned key: insert, then name the row after its seq, in one
	// transaction so no empty-key row is ever visible outside it.
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO kv_records (partition, key, value) VALUES (?, '', ?)`, partition, value)
		if err != nil {
			return err
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}
		key = strconv.FormatInt(seq, 10)
		_, err = tx.ExecContext(ctx, `UPDATE kv_records SET key = ? WHERE seq = ?`, key, seq)
		return err
	})
	if err != nil {
		return "", unavailable(fmt.Sprintf("put %s", partition), err)
	}
	return key, nil
}

func (s *SQLiteStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_records WHERE partition = ? AND key = ?`, partition, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get %s/%s", partition, key), err)
	}
	return value, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, partition string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_records WHERE partition = ? ORDER BY seq`, partition)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("getall %s", partition), err)
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, unavailable(fmt.Sprintf("scan %s", partition), err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(fmt.Sprintf("getall %s", partition), err)
	}
	return result, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, partition, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_records WHERE partition = ? AND key = ?`, partition, key)
	if err != nil {
		return unavailable(fmt.Sprintf("delete %s/%s", partition, key), err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(common.ErrStoreUnavailable, err))
}
