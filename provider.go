// provider.go: alias driven connection provider
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"context"
	"strings"
	"sync"
)

// ConnectionProvider turns a driver name and a connection string into a
// connection, creating it once and handing out the same one afterwards.
type ConnectionProvider struct {
	definition       DriverDefinition
	driverName       string
	connectionString string
	options          SessionOptions

	mu      sync.Mutex
	session *Session
	conn    *Connection
}

// NewConnectionProvider resolves driverName against aliases. Unknown names
// fail immediately with an UnknownDriverAliasError.
func NewConnectionProvider(aliases *DriverAliasTable, driverName, connectionString string, opts SessionOptions) (*ConnectionProvider, error) {
	if aliases == nil {
		aliases = DefaultDriverAliases()
	}
	def, err := aliases.Lookup(driverName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(connectionString) == "" {
		return nil, NewDriverInstantiationError(def.Name, "connection string is empty", nil)
	}
	return &ConnectionProvider{
		definition:       def,
		driverName:       driverName,
		connectionString: connectionString,
		options:          opts,
	}, nil
}

// Definition returns the driver definition the name resolved to.
func (p *ConnectionProvider) Definition() DriverDefinition { return p.definition }

// GetConnection returns the cached connection, creating the session and
// the connection on first use. A failed attempt is not cached.
func (p *ConnectionProvider) GetConnection(ctx context.Context) (*Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}

	if p.session == nil || p.session.State() == StateError {
		session, err := NewSession(p.options)
		if err != nil {
			return nil, err
		}
		p.session = session
	}

	conn, err := p.session.Connect(ctx, p.definition, p.connectionString)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

// Session returns the session backing the provider, nil before the first
// GetConnection.
func (p *ConnectionProvider) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Close closes the cached connection and the session.
func (p *ConnectionProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	if p.conn != nil {
		firstErr = p.conn.Close()
		p.conn = nil
	}
	if p.session != nil {
		if err := p.session.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.session = nil
	}
	return firstErr
}
