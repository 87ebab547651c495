package leads

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sealer encrypts personal columns at rest. A nil *crypto.Cipher satisfies
// it and leaves values in the clear.
type Sealer interface {
	Seal(column, value string) (string, error)
	Open(column, value string) (string, error)
}

// Store provides database operations for the lead archive.
type Store struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

// NewStore creates a Store backed by pool. Email and phone are sealed with
// sealer.
func NewStore(pool *pgxpool.Pool, sealer Sealer) *Store {
	if sealer == nil {
		sealer = passthrough{}
	}
	return &Store{pool: pool, sealer: sealer}
}

type passthrough struct{}

func (passthrough) Seal(_, v string) (string, error) { return v, nil }
func (passthrough) Open(_, v string) (string, error) { return v, nil }

// BatchInsert writes leads in a single multi-row INSERT. It is a no-op when
// leads is empty. Leads already stored are skipped.
func (s *Store) BatchInsert(ctx context.Context, leads []Lead) error {
	if len(leads) == 0 {
		return nil
	}

	query, args, err := s.insertQuery(leads)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("batch inserting leads: %w", err)
	}
	return nil
}

const insertCols = 10

func (s *Store) insertQuery(leads []Lead) (string, []any, error) {
	args := make([]any, 0, len(leads)*insertCols)
	rows := make([]string, 0, len(leads))

	for i, l := range leads {
		email, err := s.sealer.Seal("email", l.Email)
		if err != nil {
			return "", nil, fmt.Errorf("sealing email: %w", err)
		}
		phone, err := s.sealer.Seal("phone", l.Phone)
		if err != nil {
			return "", nil, fmt.Errorf("sealing phone: %w", err)
		}

		ph := make([]string, insertCols)
		for j := range ph {
			ph[j] = "$" + strconv.Itoa(i*insertCols+j+1)
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")
		args = append(args, l.ID, l.Source, l.Name, email, phone, l.Service, l.Message, l.Locale, l.Mailed, l.CreatedAt)
	}

	query := `INSERT INTO leads
		(id, source, name, email, phone, service, message, locale, mailed, created_at)
		VALUES ` + strings.Join(rows, ", ") + ` ON CONFLICT (id) DO NOTHING`
	return query, args, nil
}

// List returns a page of leads ordered by created_at DESC, id DESC, and the
// cursor of the next page (empty when there is none).
func (s *Store) List(ctx context.Context, q Query) ([]Lead, string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []any
	if q.Source != "" {
		args = append(args, q.Source)
		conditions = append(conditions, "source = $"+strconv.Itoa(len(args)))
	}
	if q.Cursor != "" {
		ts, id, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		args = append(args, ts, id)
		conditions = append(conditions, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	query := `SELECT id, source, name, email, phone, service, message, locale, mailed, created_at FROM leads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit+1)
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.Source, &l.Name, &l.Email, &l.Phone,
			&l.Service, &l.Message, &l.Locale, &l.Mailed, &l.CreatedAt); err != nil {
			return nil, "", fmt.Errorf("scanning lead row: %w", err)
		}
		if l.Email, err = s.sealer.Open("email", l.Email); err != nil {
			return nil, "", fmt.Errorf("opening email of lead %s: %w", l.ID, err)
		}
		if l.Phone, err = s.sealer.Open("phone", l.Phone); err != nil {
			return nil, "", fmt.Errorf("opening phone of lead %s: %w", l.ID, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterating lead rows: %w", err)
	}

	var next string
	if len(out) > limit {
		last := out[limit-1]
		next = encodeCursor(last.CreatedAt, last.ID)
		out = out[:limit]
	}
	return out, next, nil
}

// Count returns the number of archived leads per source.
func (s *Store) Count(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, COUNT(*) FROM leads GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("counting leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scanning lead count: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// encodeCursor packs a position as base64("unixnano|uuid").
func encodeCursor(ts time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(ts.UnixNano(), 10) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("decoding cursor: %w", err)
	}
	tsPart, idPart, ok := strings.Cut(string(raw), "|")
	if !ok {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("parsing cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("parsing cursor id: %w", err)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
