package ftp2http

import (
	"context"
	"errors"
	"time"

	"github.com/apnarm/ftp2http/relay"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRemoteAccountCreated = "remote_account_created"
	auditEventUploadRelayed        = "upload_relayed"
	auditEventUploadFailed         = "upload_failed"
	auditEventUploadDiscarded      = "upload_discarded"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrBackendRejected    AuditErrorCode = "backend_rejected"
	auditErrBackendUnreachable AuditErrorCode = "backend_unreachable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (g *Gateway) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	uploadID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		SessionID: sessionIDFromContext(ctx),
		UploadID:  uploadID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	g.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var unexpected *relay.UnexpectedHTTPResponse
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.As(err, &unexpected):
		if unexpected.StatusCode == 0 {
			return auditErrBackendUnreachable
		}
		return auditErrBackendRejected
	default:
		return auditErrInternal
	}
}
