package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldMutation      = "mutation"
	FieldQueryKey      = "query_key"
	FieldBinderID      = "binder_id"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldUserID        = "user_id"
	FieldAmountCents   = "amount_cents"
	FieldCacheName     = "cache_name"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAPIClient = "api_client"
	ComponentQuery     = "query"
	ComponentSync      = "sync"
	ComponentSession   = "session"
	ComponentOffline   = "offline"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentAuth      = "auth"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpInvalidate = "invalidate"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpProbe      = "probe"
	OpInstall    = "install"
	OpActivate   = "activate"
	OpFetch      = "fetch"
	OpPush       = "push"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity adds the ids that are set (non-zero) for binder, category and transaction.
func (f LogFields) WithEntity(binderID, categoryID, transactionID int64) LogFields {
	if binderID != 0 {
		f[FieldBinderID] = binderID
	}
	if categoryID != 0 {
		f[FieldCategoryID] = categoryID
	}
	if transactionID != 0 {
		f[FieldTransactionID] = transactionID
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
