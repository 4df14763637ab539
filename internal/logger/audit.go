package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	// OAuth actions
	AuditActionAuthorize    AuditAction = "OAUTH_AUTHORIZE"
	AuditActionTokenGrant   AuditAction = "OAUTH_TOKEN_GRANT"
	AuditActionTokenRefresh AuditAction = "OAUTH_TOKEN_REFRESH"
	AuditActionAuthFailed   AuditAction = "OAUTH_FAILED"

	// Todo mutations relayed to Basecamp
	AuditActionTodoUpdate     AuditAction = "TODO_UPDATE"
	AuditActionTodoComplete   AuditAction = "TODO_COMPLETE"
	AuditActionTodoUncomplete AuditAction = "TODO_UNCOMPLETE"
	AuditActionTodoTrash      AuditAction = "TODO_TRASH"

	// File operations
	AuditActionFileUpload AuditAction = "FILE_UPLOAD"

	// Export operations
	AuditActionExport AuditAction = "EXPORT"

	// WebSocket operations
	AuditActionWSConnect    AuditAction = "WS_CONNECT"
	AuditActionWSDisconnect AuditAction = "WS_DISCONNECT"

	// API operations
	AuditActionAPIRequest AuditAction = "API_REQUEST"
	AuditActionAPIError   AuditAction = "API_ERROR"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	Email      string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	Success    bool
	Error      string
	Duration   int64 // Duration in milliseconds
	Method     string
	Path       string
	StatusCode int
}

// auditLogger is a specialized logger for audit events
var auditLogger zerolog.Logger

func init() {
	InitAudit()
}

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	requestID := GetRequestID(ctx)
	if requestID != "" && event.RequestID == "" {
		event.RequestID = requestID
	}

	if event.Email == "" {
		event.Email = GetEmail(ctx)
	}

	logEvent := auditLogger.Info()
	if !event.Success {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("email", event.Email).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("client_ip", event.ClientIP).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}

	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}

	if event.Method != "" {
		logEvent.Str("method", event.Method)
	}

	if event.Path != "" {
		logEvent.Str("path", event.Path)
	}

	if event.StatusCode > 0 {
		logEvent.Int("status_code", event.StatusCode)
	}

	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, clientIP string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   "api",
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    success,
	})
}

// AuditWebSocket logs WebSocket connection events
func AuditWebSocket(ctx context.Context, action AuditAction, email, clientIP string, details map[string]interface{}) {
	Audit(ctx, AuditEvent{
		Action:   action,
		Email:    email,
		Resource: "websocket",
		ClientIP: clientIP,
		Success:  true,
		Details:  details,
	})
}

// errString avoids "<nil>" in audit records
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AuditMutation logs one relayed todo write
func AuditMutation(ctx context.Context, action AuditAction, projectID, todoID int64, duration time.Duration, err error) {
	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   "todo",
		ResourceID: fmt.Sprintf("%d/%d", projectID, todoID),
		Duration:   duration.Milliseconds(),
		Success:    err == nil,
		Error:      errString(err),
		Details: map[string]interface{}{
			"project_id": projectID,
			"todo_id":    todoID,
		},
	})
}

