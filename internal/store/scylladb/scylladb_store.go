// internal/store/scylladb/scylladb_store.go
package scylladb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/gocql/gocql"
)

var (
	ErrConfigOptionMissing = errors.New("ScyllaDB requires a config option")
)

// StoreName the name of the store.
const StoreName string = "scylladb"

// MaxBatchKeys bounds a conditional batch; larger batches are rejected by the coordinator.
const MaxBatchKeys = 100

// init registers the ScyllaDB store with the lockservice package.
func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.Store, error) {
	cfg, ok := options.(*ScyllaDBConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// newSessionFn dials the cluster. Replaced in tests.
var newSessionFn = func(config *ScyllaDBConfig) (session, error) {
	cluster := gocql.NewCluster(config.GetEndpoints()...)
	cluster.ProtoVersion = 4
	cluster.Consistency = parseConsistency(config.Consistency)
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = config.GetOpTimeout()

	s, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return gocqlSession{s: s}, nil
}

// Store implements the store.Store interface.
// Every record lives in one partition (the bucket) so that a conditional batch
// over any set of keys stays single-partition.
type Store struct {
	session       session
	keyspaceName  string
	fullTableName string
	bucket        string
	opTimeout     time.Duration
	l             *observability.SLogger
	config        *ScyllaDBConfig

	setNXQuery            string
	getQuery              string
	expireQuery           string
	deleteQuery           string
	compareAndDeleteQuery string
}

var _ store.Store = (*Store)(nil)

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// parseConsistency converts string consistency to gocql.Consistency
func parseConsistency(c string) gocql.Consistency {
	switch c {
	case "CONSISTENCY_QUORUM":
		return gocql.Quorum
	case "CONSISTENCY_LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "CONSISTENCY_ONE":
		return gocql.One
	case "CONSISTENCY_ALL":
		return gocql.All
	default:
		return gocql.Quorum
	}
}

// New creates a new ScyllaDB client and ensures the keyspace and table exist.
func New(ctx context.Context, config *ScyllaDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, ErrConfigOptionMissing
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	sess, err := newSessionFn(config)
	if err != nil {
		logger.Errorf("Error creating session: %v", err)
		return nil, store.Unreachable("create scylladb session", err)
	}

	sdb := &Store{
		session:       sess,
		keyspaceName:  config.Keyspace,
		fullTableName: fmt.Sprintf(`"%s"."%s"`, config.Keyspace, config.TableName),
		bucket:        config.GetBucket(),
		opTimeout:     config.GetOpTimeout(),
		l:             logger,
		config:        config,
	}
	sdb.initQueries()

	if err := sdb.validateKeyspace(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	if err := sdb.validateTable(ctx); err != nil {
		sess.Close()
		return nil, err
	}

	return sdb, nil
}

// initQueries builds the statements. Writes are UPDATEs only, so a record
// never gets a row marker and disappears entirely when its value expires.
func (sdb *Store) initQueries() {
	t := sdb.fullTableName
	sdb.setNXQuery = fmt.Sprintf("UPDATE %s USING TTL ? SET lock_value = ? WHERE bucket = ? AND lock_key = ? IF lock_value = null", t)
	sdb.getQuery = fmt.Sprintf("SELECT lock_value FROM %s WHERE bucket = ? AND lock_key = ?", t)
	sdb.expireQuery = fmt.Sprintf("UPDATE %s USING TTL ? SET lock_value = ? WHERE bucket = ? AND lock_key = ? IF lock_value = ?", t)
	sdb.deleteQuery = fmt.Sprintf("DELETE FROM %s WHERE bucket = ? AND lock_key IN ?", t)
	sdb.compareAndDeleteQuery = fmt.Sprintf("DELETE FROM %s WHERE bucket = ? AND lock_key = ? IF lock_value = ?", t)
}

func (sdb *Store) validateKeyspace(ctx context.Context) error {
	rf := sdb.config.ReplicationFactor
	if rf == 0 {
		rf = 3
	}
	err := sdb.session.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS "%s"
	WITH replication = {
		'class' : 'SimpleStrategy',
		'replication_factor' : %d
	}`, sdb.keyspaceName, rf)).WithContext(ctx).Exec()
	if err != nil {
		sdb.l.Errorf("Error creating keyspace %s: %v", sdb.keyspaceName, err)
		return fmt.Errorf("failed to create keyspace: %w", err)
	}
	return nil
}

func (sdb *Store) validateTable(ctx context.Context) error {
	err := sdb.session.Query(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        bucket text,
        lock_key text,
        lock_value text,
        PRIMARY KEY ((bucket), lock_key)
    )`, sdb.fullTableName)).WithContext(ctx).Exec()
	if err != nil {
		sdb.l.Errorf("Error creating table %s: %v", sdb.fullTableName, err)
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (sdb *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, sdb.opTimeout)
}

// ttlSeconds rounds ttl up to whole seconds; 0 means no expiry.
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(math.Ceil(ttl.Seconds()))
}

// SetNX writes the value with a lightweight transaction conditioned on the value being unset.
func (sdb *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	applied, err := sdb.session.Query(sdb.setNXQuery, ttlSeconds(ttl), value, sdb.bucket, key).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		sdb.l.Errorf("Error acquiring key %s: %v", key, err)
		return false, store.Unreachable("scylladb setnx", err)
	}
	return applied, nil
}

// MSetNX applies one conditional batch; it is applied only if every condition holds.
func (sdb *Store) MSetNX(ctx context.Context, values map[string]string) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}
	if len(values) > MaxBatchKeys {
		return false, fmt.Errorf("scylladb msetnx of %d keys: %w", len(values), store.ErrTooManyKeys)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]statement, 0, len(keys))
	for _, k := range keys {
		stmts = append(stmts, statement{
			cql:  sdb.setNXQuery,
			args: []interface{}{0, values[k], sdb.bucket, k},
		})
	}

	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	applied, err := sdb.session.ExecuteBatchCAS(ctx, stmts)
	if err != nil {
		sdb.l.Errorf("Error applying batch of %d keys: %v", len(keys), err)
		return false, store.Unreachable("scylladb msetnx", err)
	}
	return applied, nil
}

// Expire rewrites the current value with a new TTL, conditioned on the value being unchanged.
func (sdb *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	current, found, err := sdb.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}

	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	applied, err := sdb.session.Query(sdb.expireQuery, ttlSeconds(ttl), current, sdb.bucket, key, current).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, store.Unreachable("scylladb expire", err)
	}
	return applied, nil
}

// Get reads the value of key.
func (sdb *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	var value string
	err := sdb.session.Query(sdb.getQuery, sdb.bucket, key).WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.Unreachable("scylladb get", err)
	}
	return value, true, nil
}

// Delete removes all keys with a single statement.
func (sdb *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	if err := sdb.session.Query(sdb.deleteQuery, sdb.bucket, keys).WithContext(ctx).Exec(); err != nil {
		sdb.l.Errorf("Error deleting keys %v: %v", keys, err)
		return store.Unreachable("scylladb delete", err)
	}
	return nil
}

// CompareAndDelete deletes key with a lightweight transaction conditioned on its value.
func (sdb *Store) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	ctx, cancel := sdb.opContext(ctx)
	defer cancel()

	applied, err := sdb.session.Query(sdb.compareAndDeleteQuery, sdb.bucket, key, expected).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, store.Unreachable("scylladb compare-and-delete", err)
	}
	return applied, nil
}

func (sdb *Store) Close() error {
	sdb.session.Close()
	return nil
}
