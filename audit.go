// audit.go: security audit trail for native code entering the process
//
// Staging a shared library and opening a driver module both bring foreign
// native code into the process. Every such event can be written to an
// Argus audit log so operators can trace what a migration run loaded.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package driverloader

import (
	"sync"
	"time"

	"github.com/agilira/argus"
)

// Audit event types
const (
	AuditNativeAssetStaged = "native_asset_staged"
	AuditModuleLoaded      = "module_loaded"
	AuditConnectionProbed  = "connection_probed"
	AuditSessionFailed     = "session_failed"
)

// Auditor records security relevant loader events.
type Auditor interface {
	Audit(eventType, message string, context map[string]interface{})
}

// NoOpAuditor drops every event.
type NoOpAuditor struct{}

// Audit implements Auditor (no-op)
func (NoOpAuditor) Audit(string, string, map[string]interface{}) {}

// ArgusAuditor writes events through an argus.AuditLogger.
type ArgusAuditor struct {
	mu     sync.Mutex
	logger *argus.AuditLogger
	closed bool
}

// NewArgusAuditor creates an auditor appending JSON lines to outputFile.
func NewArgusAuditor(outputFile string) (*ArgusAuditor, error) {
	logger, err := argus.NewAuditLogger(argus.AuditConfig{
		Enabled:       true,
		OutputFile:    outputFile,
		MinLevel:      argus.AuditInfo,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		IncludeStack:  false,
	})
	if err != nil {
		return nil, NewAuditError("failed to create audit logger", err)
	}
	return &ArgusAuditor{logger: logger}, nil
}

// Audit implements Auditor.
func (a *ArgusAuditor) Audit(eventType, message string, context map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.logger.LogSecurityEvent(eventType, message, context)
}

// Close flushes and closes the underlying audit log. It is safe to call
// more than once.
func (a *ArgusAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.logger.Close(); err != nil {
		return NewAuditError("failed to close audit logger", err)
	}
	return nil
}
