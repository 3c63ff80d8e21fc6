package widget

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Type is the widget discriminator
type Type string

const (
	TypeBalanceCard        Type = "balance_card"
	TypeTransactionTable   Type = "transaction_table"
	TypeTicketForm         Type = "ticket_form"
	TypeConfirmationDialog Type = "confirmation_dialog"
	TypeTicketStatusBoard  Type = "ticket_status_board"
)

// Types lists every known widget variant in declaration order
var Types = []Type{
	TypeBalanceCard,
	TypeTransactionTable,
	TypeTicketForm,
	TypeConfirmationDialog,
	TypeTicketStatusBoard,
}

// Known reports whether t names one of the five variants
func (t Type) Known() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Payload is a validated widget. The set of implementations is closed.
type Payload interface {
	WidgetType() Type
	widget()
}

// Money pairs an amount with an explicit ISO currency code
type Money struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// ActionKind selects how a button is handled when clicked
type ActionKind string

const (
	ActionDeeplink ActionKind = "deeplink"
	ActionPostback ActionKind = "postback"
)

// Variant is the visual emphasis of a button
type Variant string

const (
	VariantPrimary   Variant = "primary"
	VariantSecondary Variant = "secondary"
	VariantDanger    Variant = "danger"
)

// ActionButton is shared by every widget that carries actions
type ActionButton struct {
	ID       string         `json:"id,omitempty"`
	Label    string         `json:"label"`
	Action   ActionKind     `json:"action"`
	Deeplink string         `json:"deeplink,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	Variant  Variant        `json:"variant,omitempty"`
}

// Account is one row of a balance card
type Account struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Balance   Money  `json:"balance"`
	Available *Money `json:"available,omitempty"`
	Limit     *Money `json:"limit,omitempty"`
	Deeplink  string `json:"deeplink,omitempty"`
}

// BalanceCard summarises one or more account balances
type BalanceCard struct {
	Type     Type           `json:"type"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Accounts []Account      `json:"accounts"`
	Actions  []ActionButton `json:"actions,omitempty"`
}

// FilterChip is a display-only filter marker on a transaction table
type FilterChip struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Direction of money movement
type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

// TransactionStatus is the settlement state of a transaction
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one row of a transaction table
type Transaction struct {
	ID          string            `json:"id"`
	PostedAt    string            `json:"postedAt"`
	Description string            `json:"description"`
	Amount      Money             `json:"amount"`
	Direction   Direction         `json:"direction"`
	Status      TransactionStatus `json:"status"`
	Category    string            `json:"category,omitempty"`
	Deeplink    string            `json:"deeplink,omitempty"`
}

// Pagination carries the cursor for the next page, nil when exhausted
type Pagination struct {
	Cursor      *string `json:"cursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// TransactionTable lists transactions with optional filters and paging
type TransactionTable struct {
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	FilterChips  []FilterChip   `json:"filterChips,omitempty"`
	Transactions []Transaction  `json:"transactions"`
	Pagination   *Pagination    `json:"pagination,omitempty"`
	Actions      []ActionButton `json:"actions,omitempty"`
}

// FieldKind discriminates ticket form fields
type FieldKind string

const (
	FieldSelect     FieldKind = "select"
	FieldTextarea   FieldKind = "textarea"
	FieldAttachment FieldKind = "attachment"
)

// FormField is one input of a ticket form. The set of implementations is closed.
type FormField interface {
	FieldKind() FieldKind
	FieldName() string
	FieldLabel() string
	formField()
}

// SelectOption is one choice of a select field
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SelectField picks one value from a fixed option list
type SelectField struct {
	Kind     FieldKind      `json:"kind"`
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Options  []SelectOption `json:"options"`
	Required bool           `json:"required"`
}

// TextareaField collects free text
type TextareaField struct {
	Kind        FieldKind `json:"kind"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	MaxLength   int       `json:"maxLength,omitempty"`
}

// AttachmentField collects up to MaxItems files
type AttachmentField struct {
	Kind     FieldKind `json:"kind"`
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	MaxItems int       `json:"maxItems"`
}

func (f *SelectField) FieldKind() FieldKind     { return FieldSelect }
func (f *SelectField) FieldName() string        { return f.Name }
func (f *SelectField) FieldLabel() string       { return f.Label }
func (f *TextareaField) FieldKind() FieldKind   { return FieldTextarea }
func (f *TextareaField) FieldName() string      { return f.Name }
func (f *TextareaField) FieldLabel() string     { return f.Label }
func (f *AttachmentField) FieldKind() FieldKind { return FieldAttachment }
func (f *AttachmentField) FieldName() string    { return f.Name }
func (f *AttachmentField) FieldLabel() string   { return f.Label }

func (*SelectField) formField()     {}
func (*TextareaField) formField()   {}
func (*AttachmentField) formField() {}

// TicketForm collects a support request
type TicketForm struct {
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Fields      []FormField    `json:"fields"`
	SubmitLabel string         `json:"submitLabel"`
	CancelLabel string         `json:"cancelLabel,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes the field union by kind
func (f *TicketForm) UnmarshalJSON(data []byte) error {
	type plain TicketForm
	var raw struct {
		plain
		Fields []json.RawMessage `json:"fields"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = TicketForm(raw.plain)
	f.Fields = make([]FormField, 0, len(raw.Fields))
	for _, item := range raw.Fields {
		field, err := decodeField(item)
		if err != nil {
			return err
		}
		f.Fields = append(f.Fields, field)
	}
	return nil
}

func decodeField(data []byte) (FormField, error) {
	var head struct {
		Kind FieldKind `json:"kind"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var field FormField
	switch head.Kind {
	case FieldSelect:
		field = &SelectField{}
	case FieldTextarea:
		field = &TextareaField{}
	case FieldAttachment:
		field = &AttachmentField{}
	default:
		return nil, &ValidationError{Type: TypeTicketForm, Reason: "unknown field kind " + string(head.Kind)}
	}
	if err := sonic.ConfigStd.Unmarshal(data, field); err != nil {
		return nil, err
	}
	return field, nil
}

// Severity of a confirmation dialog
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ConfirmationDialog asks the user to approve or reject an agent action
type ConfirmationDialog struct {
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Severity     Severity       `json:"severity"`
	ConfirmLabel string         `json:"confirmLabel"`
	CancelLabel  string         `json:"cancelLabel"`
	Actions      []ActionButton `json:"actions,omitempty"`
}

// TicketStatus is the lifecycle position of a support ticket
type TicketStatus string

const (
	TicketNew             TicketStatus = "new"
	TicketInProgress      TicketStatus = "in_progress"
	TicketPendingCustomer TicketStatus = "pending_customer"
	TicketResolved        TicketStatus = "resolved"
	TicketClosed          TicketStatus = "closed"
)

// Ticket is one row of a ticket status board
type Ticket struct {
	ID        string       `json:"id"`
	Status    TicketStatus `json:"status"`
	UpdatedAt string       `json:"updatedAt"`
	Summary   string       `json:"summary"`
	Deeplink  string       `json:"deeplink,omitempty"`
}

// TicketStatusBoard lists support tickets
type TicketStatusBoard struct {
	Type    Type           `json:"type"`
	Title   string         `json:"title"`
	Tickets []Ticket       `json:"tickets"`
	Actions []ActionButton `json:"actions,omitempty"`
}

func (*BalanceCard) WidgetType() Type        { return TypeBalanceCard }
func (*TransactionTable) WidgetType() Type   { return TypeTransactionTable }
func (*TicketForm) WidgetType() Type         { return TypeTicketForm }
func (*ConfirmationDialog) WidgetType() Type { return TypeConfirmationDialog }
func (*TicketStatusBoard) WidgetType() Type  { return TypeTicketStatusBoard }

func (*BalanceCard) widget()        {}
func (*TransactionTable) widget()   {}
func (*TicketForm) widget()         {}
func (*ConfirmationDialog) widget() {}
func (*TicketStatusBoard) widget()  {}
