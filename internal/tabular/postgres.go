package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps registered tables in PostgreSQL, one table per dataset
// in the connection's current schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Close closes the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Register replaces the table inside one transaction and bulk-loads rows
// with COPY.
func (s *PostgresStore) Register(ctx context.Context, name string, frame *Frame) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if len(frame.Columns) == 0 {
		return fmt.Errorf("register %s: frame has no columns", name)
	}
	ident := pgx.Identifier{physicalName(name)}
	table := ident.Sanitize()
	kinds := columnKinds(frame)

	defs := []string{quoteIdentifier(rowOrderColumn) + " BIGINT NOT NULL"}
	copyCols := []string{rowOrderColumn}
	for i, c := range frame.Columns {
		typ := "TEXT"
		if kinds[i] {
			typ = "DOUBLE PRECISION"
		}
		defs = append(defs, quoteIdentifier(c)+" "+typ)
		copyCols = append(copyCols, c)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	rows := make([][]any, len(frame.Rows))
	for i, row := range frame.Rows {
		vals := make([]any, 0, len(copyCols))
		vals = append(vals, int64(i))
		for _, c := range frame.Columns {
			vals = append(vals, storageValue(row[c]))
		}
		rows[i] = vals
	}

	if _, err := tx.CopyFrom(ctx, ident, copyCols, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy rows into %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads a table back in registration order.
func (s *PostgresStore) Load(ctx context.Context, name string) (*Frame, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	cols, err := s.columns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "),
		pgx.Identifier{physicalName(name)}.Sanitize(),
		quoteIdentifier(rowOrderColumn))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	frame := NewFrame(cols, nil)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = readValue(values[i])
		}
		frame.Rows = append(frame.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return frame, nil
}

// Drop removes a table if it exists.
func (s *PostgresStore) Drop(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{physicalName(name)}.Sanitize()); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// Tables lists registered dataset names.
func (s *PostgresStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND left(table_name, $1) = $2
		ORDER BY table_name`, len(tablePrefix), tablePrefix)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	for i, n := range names {
		names[i] = strings.TrimPrefix(n, tablePrefix)
	}
	return names, nil
}

// columns returns the table's data columns in declaration order, or none
// when the table does not exist.
func (s *PostgresStore) columns(ctx context.Context, name string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1 AND column_name <> $2
		ORDER BY ordinal_position`, physicalName(name), rowOrderColumn)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	cols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	return cols, nil
}
