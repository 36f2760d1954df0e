package orderlens

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS courses (
	id bigint PRIMARY KEY,
	title text NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
	id bigint PRIMARY KEY,
	amount double precision NOT NULL,
	status varchar(2) NOT NULL,
	create_time timestamptz NOT NULL,
	pay_time timestamptz,
	platform text NOT NULL,
	province text NOT NULL,
	product_line text NOT NULL,
	course_id bigint NOT NULL REFERENCES courses (id)
);
CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status);
CREATE INDEX IF NOT EXISTS orders_create_time_idx ON orders (create_time);
`

// PostgresStore queries orders with pgx using the raw SQL builder.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table RawTable
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, table: OrdersTable}
}

// EnsureSchema creates the order and course tables when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return errors.Wrap(err, "create order tables")
}

func (s *PostgresStore) Insert(ctx context.Context, courses []Course, orders []Order) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range courses {
			batch.Queue(`INSERT INTO courses (id, title) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`, int64(c.ID), c.Title)
		}
		for _, o := range orders {
			o = o.InUTC()
			batch.Queue(`INSERT INTO orders (id, amount, status, create_time, pay_time, platform, province, product_line, course_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				int64(o.ID), o.Amount, string(o.Status), o.CreateTime, o.PayTime, o.Platform, o.Province, o.ProductLine, int64(o.CourseID))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert orders")
		}
		return nil
	})
}

func (s *PostgresStore) Query(ctx context.Context, predicate Expr) (Result, error) {
	// Validate the predicate before opening a transaction.
	if _, _, err := BuildRawWhere(s.table, predicate); err != nil {
		return nil, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, errors.Wrap(err, "begin read transaction")
	}
	return &postgresResult{tx: tx, table: s.table, predicate: predicate}, nil
}

type postgresResult struct {
	tx        pgx.Tx
	table     RawTable
	predicate Expr
}

func (r *postgresResult) Count(ctx context.Context) (int64, error) {
	sql, args, err := BuildRawCount(r.table, r.predicate)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.tx.QueryRow(ctx, replaceParamMarkers(sql), args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return n, nil
}

func (r *postgresResult) Page(ctx context.Context, number, size int) ([]Order, error) {
	if number < 1 || size < 1 {
		return nil, nil
	}
	return r.load(ctx, size, (number-1)*size)
}

func (r *postgresResult) All(ctx context.Context) ([]Order, error) {
	return r.load(ctx, 0, 0)
}

func (r *postgresResult) load(ctx context.Context, limit, offset int) ([]Order, error) {
	sql, args, err := BuildRawSelect(r.table, r.predicate, limit, offset)
	if err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, replaceParamMarkers(sql), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		var (
			o        Order
			id       int64
			courseID int64
			status   string
			title    *string
		)
		if err := rows.Scan(&id, &o.Amount, &status, &o.CreateTime, &o.PayTime, &o.Platform, &o.Province, &o.ProductLine, &courseID, &title); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		o.ID = uint(id)
		o.CourseID = uint(courseID)
		o.Status = Status(status)
		o.CreateTime = o.CreateTime.UTC()
		if o.PayTime != nil {
			t := o.PayTime.UTC()
			o.PayTime = &t
		}
		if title != nil {
			o.Course = &Course{ID: o.CourseID, Title: *title}
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "read orders")
}

func (r *postgresResult) Close() error {
	return r.tx.Rollback(context.Background())
}
