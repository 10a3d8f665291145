// Package db owns the ScyllaDB session setup shared by all binaries.
package db

import (
	"time"

	"github.com/gocql/gocql"
)

type Config struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

type Session struct {
	*gocql.Session
}

// NewSession connects to the cluster with quorum consistency and a small
// exponential backoff retry policy for transient node failures.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &Session{Session: session}, nil
}
