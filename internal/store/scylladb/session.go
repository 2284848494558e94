// internal/store/scylladb/session.go
package scylladb

import (
	"context"

	"github.com/gocql/gocql"
)

// session is the subset of *gocql.Session the store uses.
type session interface {
	Query(stmt string, values ...interface{}) query
	ExecuteBatchCAS(ctx context.Context, stmts []statement) (bool, error)
	Close()
}

// query is the subset of *gocql.Query the store uses.
type query interface {
	WithContext(ctx context.Context) query
	Exec() error
	Scan(dest ...interface{}) error
	MapScanCAS(dest map[string]interface{}) (bool, error)
}

type statement struct {
	cql  string
	args []interface{}
}

type gocqlSession struct {
	s *gocql.Session
}

func (g gocqlSession) Query(stmt string, values ...interface{}) query {
	return gocqlQuery{q: g.s.Query(stmt, values...)}
}

// ExecuteBatchCAS runs stmts as one logged conditional batch.
func (g gocqlSession) ExecuteBatchCAS(ctx context.Context, stmts []statement) (bool, error) {
	b := g.s.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, st := range stmts {
		b.Query(st.cql, st.args...)
	}

	applied, iter, err := g.s.MapExecuteBatchCAS(b, map[string]interface{}{})
	if iter != nil {
		if cerr := iter.Close(); err == nil {
			err = cerr
		}
	}
	return applied, err
}

func (g gocqlSession) Close() {
	g.s.Close()
}

type gocqlQuery struct {
	q *gocql.Query
}

func (g gocqlQuery) WithContext(ctx context.Context) query {
	return gocqlQuery{q: g.q.WithContext(ctx)}
}

func (g gocqlQuery) Exec() error {
	return g.q.Exec()
}

func (g gocqlQuery) Scan(dest ...interface{}) error {
	return g.q.Scan(dest...)
}

func (g gocqlQuery) MapScanCAS(dest map[string]interface{}) (bool, error) {
	return g.q.MapScanCAS(dest)
}
