package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Renderer maps validated widgets to HTML fragments and action bindings.
// Templates and the sanitizer policy are shared; With* methods return copies.
type Renderer struct {
	policy  *bluemonday.Policy
	opener  DeeplinkOpener
	tracker Tracker
	forms   *FormPolicy
	logger  *zap.Logger
}

// New creates a renderer
func New(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		policy: fragmentPolicy(),
		forms:  DefaultFormPolicy(),
		logger: logger,
	}
}

// WithOpener returns a copy that opens deeplinks through o
func (r *Renderer) WithOpener(o DeeplinkOpener) *Renderer {
	c := *r
	c.opener = o
	return &c
}

// WithTracker returns a copy that reports analytics to t
func (r *Renderer) WithTracker(t Tracker) *Renderer {
	c := *r
	c.tracker = t
	return &c
}

// WithFormPolicy returns a copy that validates ticket forms with p
func (r *Renderer) WithFormPolicy(p *FormPolicy) *Renderer {
	c := *r
	c.forms = p
	return &c
}

// fragmentPolicy keeps the markup the templates emit and nothing else
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("section", "header", "div", "p", "span", "h3", "ul", "li",
		"form", "label", "select", "option", "textarea", "button")
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("button")
	p.AllowAttrs("name").OnElements("select", "textarea")
	p.AllowAttrs("value").OnElements("option")
	p.AllowAttrs("placeholder", "rows", "maxlength").OnElements("textarea")
	return p
}

// Render dispatches on the widget type. Unknown payloads get a visible
// placeholder with Supported set to false.
func (r *Renderer) Render(p widget.Payload, postback PostbackFunc) *View {
	view := &View{
		ID:       id.NewViewID(),
		payload:  p,
		postback: postback,
		opener:   r.opener,
		tracker:  r.tracker,
		forms:    r.forms,
	}

	var (
		name string
		data any
	)
	switch w := p.(type) {
	case *widget.BalanceCard:
		name, data = "balance_card", r.balanceCard(view, w)
	case *widget.TransactionTable:
		name, data = "transaction_table", r.transactionTable(view, w)
	case *widget.TicketForm:
		name, data = "ticket_form", r.ticketForm(view, w)
	case *widget.ConfirmationDialog:
		name, data = "confirmation_dialog", r.confirmationDialog(view, w)
	case *widget.TicketStatusBoard:
		name, data = "ticket_status_board", r.ticketStatusBoard(view, w)
	default:
		return r.Unsupported(typeName(p))
	}

	view.WidgetType = p.WidgetType()
	html, err := r.execute(name, data)
	if err != nil {
		r.logger.Error("widget template failed", zap.String("widget_type", name), zap.Error(err))
		return r.Unsupported(name)
	}
	view.HTML = html
	view.Supported = true
	view.track(EventView, "", nil)
	return view
}

// Unsupported renders the placeholder shown for widgets dispatch cannot handle
func (r *Renderer) Unsupported(widgetType string) *View {
	view := &View{ID: id.NewViewID(), WidgetType: widget.Type(widgetType), Actions: []Binding{}}
	html, err := r.execute("unsupported", map[string]any{"ViewID": view.ID, "Type": widgetType})
	if err != nil {
		html = "Unsupported widget: " + template.HTMLEscapeString(widgetType)
	}
	view.HTML = html
	return view
}

// Notice renders a standalone status line for the timeline
func (r *Renderer) Notice(level, text string) *View {
	view := &View{ID: id.NewViewID(), Actions: []Binding{}}
	html, err := r.execute("notice", map[string]any{"ViewID": view.ID, "Level": level, "Text": text})
	if err != nil {
		html = template.HTMLEscapeString(text)
	}
	view.HTML = html
	return view
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

type buttonView struct {
	ID      string
	Label   string
	Variant string
}

func (v *View) bind(b Binding) *buttonView {
	v.Actions = append(v.Actions, b)
	variant := b.Variant
	if variant == "" {
		variant = string(widget.VariantPrimary)
	}
	return &buttonView{ID: b.ID, Label: b.Label, Variant: variant}
}

func (v *View) bindButtons(buttons []widget.ActionButton) []*buttonView {
	out := make([]*buttonView, 0, len(buttons))
	for i, button := range buttons {
		b := Binding{
			ID:       button.ID,
			Label:    button.Label,
			Kind:     BindingPostback,
			Variant:  string(button.Variant),
			Deeplink: button.Deeplink,
			Payload:  button.Payload,
		}
		if b.ID == "" {
			b.ID = fmt.Sprintf("action-%d", i)
		}
		if button.Action == widget.ActionDeeplink {
			b.Kind = BindingDeeplink
		}
		out = append(out, v.bind(b))
	}
	return out
}

func (v *View) bindDeeplink(prefix, rowID, label, url string) *buttonView {
	if url == "" {
		return nil
	}
	return v.bind(Binding{
		ID:       prefix + ":" + rowID,
		Label:    label,
		Kind:     BindingDeeplink,
		Variant:  string(widget.VariantSecondary),
		Deeplink: url,
	})
}

type accountView struct {
	ID        string
	Label     string
	Balance   string
	Available string
	Limit     string
	Button    *buttonView
}

func (r *Renderer) balanceCard(v *View, w *widget.BalanceCard) map[string]any {
	accounts := make([]accountView, 0, len(w.Accounts))
	for _, a := range w.Accounts {
		row := accountView{
			ID:      a.ID,
			Label:   a.Label,
			Balance: FormatMoney(a.Balance),
			Button:  v.bindDeeplink("account", a.ID, "Manage account", a.Deeplink),
		}
		if a.Available != nil {
			row.Available = FormatMoney(*a.Available)
		}
		if a.Limit != nil {
			row.Limit = FormatMoney(*a.Limit)
		}
		accounts = append(accounts, row)
	}

	total := ""
	if sum, ok := Total(w.Accounts); ok {
		total = FormatMoney(sum)
	}

	return map[string]any{
		"ViewID":   v.ID,
		"W":        w,
		"Total":    total,
		"Accounts": accounts,
		"Actions":  v.bindButtons(w.Actions),
	}
}

type transactionView struct {
	ID          string
	Description string
	PostedAt    string
	Amount      string
	Direction   string
	Status      string
	Category    string
	Button      *buttonView
}

func (r *Renderer) transactionTable(v *View, w *widget.TransactionTable) map[string]any {
	rows := make([]transactionView, 0, len(w.Transactions))
	for _, t := range w.Transactions {
		rows = append(rows, transactionView{
			ID:          t.ID,
			Description: t.Description,
			PostedAt:    formatTimestamp(t.PostedAt),
			Amount:      FormatMoney(t.Amount),
			Direction:   string(t.Direction),
			Status:      string(t.Status),
			Category:    t.Category,
			Button:      v.bindDeeplink("transaction", t.ID, "View", t.Deeplink),
		})
	}

	data := map[string]any{
		"ViewID":  v.ID,
		"W":       w,
		"Rows":    rows,
		"Actions": v.bindButtons(w.Actions),
	}
	if w.Pagination != nil && w.Pagination.HasNextPage {
		data["HasNextPage"] = true
		if w.Pagination.Cursor != nil {
			data["Cursor"] = *w.Pagination.Cursor
		}
	}
	return data
}

type fieldView struct {
	Kind        string
	Name        string
	Label       string
	Options     []widget.SelectOption
	Placeholder string
	MaxLength   int
	MaxItems    int
}

func (r *Renderer) ticketForm(v *View, w *widget.TicketForm) map[string]any {
	fields := make([]fieldView, 0, len(w.Fields))
	for _, field := range w.Fields {
		fv := fieldView{Kind: string(field.FieldKind()), Name: field.FieldName(), Label: field.FieldLabel()}
		switch f := field.(type) {
		case *widget.SelectField:
			fv.Options = f.Options
		case *widget.TextareaField:
			fv.Placeholder = f.Placeholder
			fv.MaxLength = f.MaxLength
		case *widget.AttachmentField:
			fv.MaxItems = f.MaxItems
		}
		fields = append(fields, fv)
	}

	actions := []*buttonView{v.bind(Binding{
		ID:      "submit",
		Label:   w.SubmitLabel,
		Kind:    BindingSubmit,
		Variant: string(widget.VariantPrimary),
	})}
	if w.CancelLabel != "" {
		actions = append(actions, v.bind(Binding{
			ID:      "cancel",
			Label:   w.CancelLabel,
			Kind:    BindingCancel,
			Variant: string(widget.VariantSecondary),
		}))
	}

	return map[string]any{
		"ViewID":  v.ID,
		"W":       w,
		"Fields":  fields,
		"Actions": actions,
	}
}

func (r *Renderer) confirmationDialog(v *View, w *widget.ConfirmationDialog) map[string]any {
	var actions []*buttonView
	if len(w.Actions) > 0 {
		actions = v.bindButtons(w.Actions)
	} else {
		actions = []*buttonView{
			v.bind(Binding{
				ID:      "confirm",
				Label:   w.ConfirmLabel,
				Kind:    BindingPostback,
				Variant: string(widget.VariantPrimary),
				Payload: map[string]any{"confirmed": true},
				bare:    true,
			}),
			v.bind(Binding{
				ID:      "cancel",
				Label:   w.CancelLabel,
				Kind:    BindingPostback,
				Variant: string(widget.VariantSecondary),
				Payload: map[string]any{"confirmed": false},
				bare:    true,
			}),
		}
	}

	return map[string]any{
		"ViewID":  v.ID,
		"W":       w,
		"Actions": actions,
	}
}

type ticketView struct {
	ID          string
	Status      string
	StatusClass string
	Summary     string
	UpdatedAt   string
	Button      *buttonView
}

func (r *Renderer) ticketStatusBoard(v *View, w *widget.TicketStatusBoard) map[string]any {
	tickets := make([]ticketView, 0, len(w.Tickets))
	for _, t := range w.Tickets {
		tickets = append(tickets, ticketView{
			ID:          t.ID,
			Status:      strings.ReplaceAll(string(t.Status), "_", " "),
			StatusClass: string(t.Status),
			Summary:     t.Summary,
			UpdatedAt:   formatTimestamp(t.UpdatedAt),
			Button:      v.bindDeeplink("ticket", t.ID, "View details", t.Deeplink),
		})
	}

	return map[string]any{
		"ViewID":  v.ID,
		"W":       w,
		"Tickets": tickets,
		"Actions": v.bindButtons(w.Actions),
	}
}

// formatTimestamp renders RFC 3339 values for display and passes anything else through
func formatTimestamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("Jan 2, 2006 3:04 PM")
}

func typeName(p widget.Payload) string {
	if p == nil {
		return "unknown"
	}
	return string(p.WidgetType())
}
