package core

import (
	"context"
	"database/sql"
)

type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ChangeNotifier is told about committed writes so that derived read models can be dropped.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context)
}

type noopNotifier struct{}

func (noopNotifier) NotifyChange(context.Context) {}

// NoopNotifier is used when nothing needs to hear about writes.
var NoopNotifier ChangeNotifier = noopNotifier{}
