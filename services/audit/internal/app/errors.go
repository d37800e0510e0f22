package app

import "errors"

var (
	// ErrAuditInProgress indicates the workspace already runs an audit.
	ErrAuditInProgress   = errors.New("audit already in progress")
	ErrReportNotFound    = errors.New("report not found")
	ErrNoActiveReport    = errors.New("no active report")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrArchiveDisabled indicates no object storage is configured.
	ErrArchiveDisabled = errors.New("report archive not configured")
)
