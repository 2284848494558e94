// internal/store/scylladb/mock_scylladb_test.go
package scylladb

import (
	"context"

	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/stretchr/testify/mock"
)

// MockSession is a mock implementation of session
type MockSession struct {
	mock.Mock
}

var _ session = (*MockSession)(nil)

// Close implements the Session.Close method
func (m *MockSession) Close() {
	m.Called()
}

// Query implements the Session.Query method
func (m *MockSession) Query(stmt string, values ...interface{}) query {
	args := m.Called(stmt, values)
	return args.Get(0).(query)
}

// ExecuteBatchCAS implements session.ExecuteBatchCAS
func (m *MockSession) ExecuteBatchCAS(ctx context.Context, stmts []statement) (bool, error) {
	args := m.Called(ctx, stmts)
	return args.Bool(0), args.Error(1)
}

// MockQuery is a mock implementation of query
type MockQuery struct {
	mock.Mock
}

var _ query = (*MockQuery)(nil)

// Exec implements the Query.Exec method
func (m *MockQuery) Exec() error {
	args := m.Called()
	return args.Error(0)
}

// Scan fills the first destination with the string returned by the expectation
func (m *MockQuery) Scan(dest ...interface{}) error {
	args := m.Called(dest)
	if v, ok := args.Get(0).(string); ok && len(dest) > 0 {
		*dest[0].(*string) = v
	}
	return args.Error(1)
}

// MapScanCAS implements the Query.MapScanCAS method
func (m *MockQuery) MapScanCAS(dest map[string]interface{}) (bool, error) {
	args := m.Called(dest)
	return args.Bool(0), args.Error(1)
}

// WithContext implements the Query.WithContext method
func (m *MockQuery) WithContext(ctx context.Context) query {
	m.Called(ctx)
	return m
}

func newMockQuery() *MockQuery {
	q := new(MockQuery)
	q.On("WithContext", mock.Anything).Return()
	return q
}

// SetupStoreWithMocks creates a Store wired to a mocked session.
func SetupStoreWithMocks() (*Store, *MockSession) {
	mockSession := new(MockSession)
	logger, _, _ := observability.NewTestLogger()

	config := NewScyllaDBConfig()
	config.Keyspace = "test_keyspace"
	config.TableName = "test_table"

	s := &Store{
		session:       mockSession,
		keyspaceName:  config.Keyspace,
		fullTableName: `"test_keyspace"."test_table"`,
		bucket:        config.GetBucket(),
		opTimeout:     config.GetOpTimeout(),
		l:             logger,
		config:        config,
	}
	s.initQueries()

	return s, mockSession
}
