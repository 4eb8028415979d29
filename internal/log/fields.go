package log

import "gastos/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldExpenseID  = "expense_id"
	FieldCategoryID = "category_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldDate       = "date"
	FieldMonth      = "month"
	FieldCount      = "count"
	FieldEvent      = "event"
	FieldPath       = "path"
	FieldVersion    = "schema_version"
)

// Components
const (
	ComponentApp      = "app"
	ComponentStorage  = "storage"
	ComponentExpense  = "expense"
	ComponentCategory = "category"
	ComponentTransfer = "transfer"
	ComponentEvents   = "events"
	ComponentCache    = "cache"
	ComponentAMQP     = "amqp"
	ComponentCLI      = "cli"
)

// Operations
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpRestore = "restore"
	OpPurge   = "purge"
	OpClear   = "clear"
	OpImport  = "import"
	OpExport  = "export"
	OpSeed    = "seed"
)

// LogFields is a builder for slog key/value pairs.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds the fields identifying an expense write.
func (f LogFields) WithExpense(id int64, e core.NewExpense) LogFields {
	if id != 0 {
		f[FieldExpenseID] = id
	}
	f[FieldAmount] = core.FormatAmount(e.Amount)
	f[FieldCategory] = e.Category
	if !e.Date.IsZero() {
		f[FieldDate] = e.Date.Format(core.DateLayout)
	}
	return f
}

func (f LogFields) WithCategory(id int64, name string) LogFields {
	if id != 0 {
		f[FieldCategoryID] = id
	}
	if name != "" {
		f[FieldCategory] = name
	}
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
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
