package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// SQLStore maps the key-value contract onto two MySQL tables created by the
// migrations in internal/database/migrations:
//
//	kv_entries(k PRIMARY KEY, v)
//	kv_index(seq AUTO_INCREMENT, list, member, UNIQUE(list, member))
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, "SELECT v FROM kv_entries WHERE k = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM kv_entries WHERE k = ? LIMIT 1", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) Create(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO kv_entries (k, v) VALUES (?, ?)", key, value)
	if isDuplicate(err) {
		return ErrExists
	}
	return err
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv_entries (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q := "DELETE FROM kv_entries WHERE k IN (" + placeholders(len(keys)) + ")"
	_, err := s.db.ExecContext(ctx, q, toArgs(keys)...)
	return err
}

// IndexAdd inserts all members in one statement; AUTO_INCREMENT values are
// assigned in VALUES order, which keeps insertion order. INSERT IGNORE
// leaves existing members at their original position.
func (s *SQLStore) IndexAdd(ctx context.Context, index string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT IGNORE INTO kv_index (list, member) VALUES ")
	args := make([]any, 0, 2*len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?)")
		args = append(args, index, id)
	}
	_, err := s.db.ExecContext(ctx, b.String(), args...)
	return err
}

func (s *SQLStore) IndexRemove(ctx context.Context, index string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q := "DELETE FROM kv_index WHERE list = ? AND member IN (" + placeholders(len(ids)) + ")"
	args := append([]any{index}, toArgs(ids)...)
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *SQLStore) IndexPage(ctx context.Context, index, cursor string, limit int) (Page, error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return Page{}, err
	}
	if limit < 1 {
		limit = 1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT member, seq FROM kv_index WHERE list = ? AND seq > ? ORDER BY seq LIMIT ?",
		index, after, limit+1)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var (
		page    Page
		lastSeq int64
	)
	for rows.Next() {
		var (
			member string
			seq    int64
		)
		if err := rows.Scan(&member, &seq); err != nil {
			return Page{}, err
		}
		if len(page.IDs) == limit {
			page.Next = formatCursor(lastSeq)
			break
		}
		page.IDs = append(page.IDs, member)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (s *SQLStore) IndexCount(ctx context.Context, index string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv_index WHERE list = ?", index).Scan(&n)
	return n, err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
