package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldPostingID  = "posting_id"
	FieldAccountID  = "account_id"
	FieldTaskID     = "task_id"
	FieldTokenID    = "token_id"
	FieldTaskKind   = "task_kind"
	FieldBudgetID   = "budget_id"
	FieldPlanID     = "plan_id"
	FieldAmount     = "amount_cents"
	FieldKind       = "kind"
	FieldBasis      = "basis"
	FieldBucket     = "bucket"
)

// Components defines standard component names
const (
	ComponentApp           = "app"
	ComponentHTTP          = "http"
	ComponentStorage       = "storage"
	ComponentAMQP          = "amqp"
	ComponentWorker        = "worker"
	ComponentAuth          = "auth"
	ComponentPostings      = "postings"
	ComponentReports       = "reports"
	ComponentAggregates    = "aggregates"
	ComponentBudgets       = "budgets"
	ComponentSavings       = "savings"
	ComponentAttachments   = "attachments"
	ComponentNotifications = "notifications"
	ComponentExport        = "export"
	ComponentImport        = "import"
	ComponentBackup        = "backup"
	ComponentCache         = "cache"
	ComponentRateLimit     = "rate_limit"
	ComponentTrace         = "trace"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpExecute  = "execute"
	OpImport   = "import"
	OpExport   = "export"
	OpBackup   = "backup"
	OpRebuild  = "rebuild"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
