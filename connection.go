// connection.go: connection creation for resolved drivers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"
)

// Connection is a database connection created from a resolved driver. It is
// handed out unopened; Open establishes the underlying pool.
type Connection struct {
	connectionString string
	resolved         *ResolvedDriver
	connector        driver.Connector

	mu sync.Mutex
	db *sql.DB
}

// ConnectionString returns the connection string the connection was
// created with.
func (c *Connection) ConnectionString() string { return c.connectionString }

// Driver returns the resolved driver backing the connection.
func (c *Connection) Driver() *ResolvedDriver { return c.resolved }

// Open creates the database handle and verifies it with a ping. Opening an
// already open connection is a no-op.
func (c *Connection) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	db := sql.OpenDB(c.connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	c.db = db
	return nil
}

// DB returns the database handle, nil until Open succeeded.
func (c *Connection) DB() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// IsOpen reports whether Open succeeded and Close has not been called.
func (c *Connection) IsOpen() bool {
	return c.DB() != nil
}

// Exec opens the connection if needed and executes a statement.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c.DB().ExecContext(ctx, query, args...)
}

// Query opens the connection if needed and runs a query.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c.DB().QueryContext(ctx, query, args...)
}

// Close releases the database handle. Closing an unopened connection is a
// no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// dsnConnector mirrors the connector database/sql builds for drivers that
// do not implement driver.DriverContext.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver { return c.driver }

// ConnectionFactory creates connections from resolved drivers.
type ConnectionFactory struct {
	prober  NativeProber
	logger  Logger
	auditor Auditor
}

// ConnectionFactoryOption customises a ConnectionFactory.
type ConnectionFactoryOption func(*ConnectionFactory)

// WithNativeProber replaces the working directory prober.
func WithNativeProber(prober NativeProber) ConnectionFactoryOption {
	return func(f *ConnectionFactory) {
		if prober != nil {
			f.prober = prober
		}
	}
}

// WithFactoryLogger sets the factory logger.
func WithFactoryLogger(logger Logger) ConnectionFactoryOption {
	return func(f *ConnectionFactory) { f.logger = NewLogger(logger) }
}

// WithFactoryAuditor records every probe.
func WithFactoryAuditor(auditor Auditor) ConnectionFactoryOption {
	return func(f *ConnectionFactory) {
		if auditor != nil {
			f.auditor = auditor
		}
	}
}

// NewConnectionFactory creates a factory probing with a
// WorkingDirectoryProber unless configured otherwise.
func NewConnectionFactory(opts ...ConnectionFactoryOption) *ConnectionFactory {
	f := &ConnectionFactory{
		prober:  WorkingDirectoryProber{},
		logger:  NewNoOpLogger(),
		auditor: NoOpAuditor{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateConnection instantiates a connection for rd.
//
// Before returning, a raw driver connection is opened and closed once with
// the staging directory in scope, so the driver's native libraries get
// loaded from there. The outcome of that probe is deliberately ignored: the
// returned connection is unopened and reports real failures on Open.
func (f *ConnectionFactory) CreateConnection(ctx context.Context, rd *ResolvedDriver, connectionString string) (*Connection, error) {
	if rd == nil || rd.Driver() == nil {
		return nil, NewDriverInstantiationError("", "no resolved driver", nil)
	}
	if strings.TrimSpace(connectionString) == "" {
		return nil, NewDriverInstantiationError(rd.TypeName(), "connection string is empty", nil)
	}

	connector, err := newConnector(rd.Driver(), connectionString)
	if err != nil {
		return nil, NewDriverInstantiationError(rd.TypeName(), "driver rejected the connection string", err)
	}

	f.probe(ctx, rd, connector)

	return &Connection{
		connectionString: connectionString,
		resolved:         rd,
		connector:        connector,
	}, nil
}

func newConnector(d driver.Driver, dsn string) (driver.Connector, error) {
	if dc, ok := d.(driver.DriverContext); ok {
		return dc.OpenConnector(dsn)
	}
	return dsnConnector{dsn: dsn, driver: d}, nil
}

func (f *ConnectionFactory) probe(ctx context.Context, rd *ResolvedDriver, connector driver.Connector) {
	dir := rd.StagingDirectory()
	if aware, ok := rd.Driver().(NativeSearchPathAware); ok {
		aware.SetNativeSearchPath(dir)
		f.logger.Debug("Native search path handed to driver", "type", rd.TypeName(), "dir", dir)
		return
	}
	if dir == "" {
		return
	}

	recovered := withStackRecover(f.logger, "Driver panicked during native load probe", "type", rd.TypeName(), "dir", dir)
	err := f.prober.Probe(ctx, dir, func(ctx context.Context) (err error) {
		defer withDriverPanicRecover(&err, recovered)()
		conn, err := connector.Connect(ctx)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		f.logger.Debug("Native load probe failed", "type", rd.TypeName(), "dir", dir, "error", err)
	}
	f.auditor.Audit(AuditConnectionProbed, "Driver connection probed", map[string]interface{}{
		"type":      rd.TypeName(),
		"library":   rd.Library(),
		"dir":       dir,
		"succeeded": err == nil,
	})
}
