package render

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
)

// ErrInvalidInput is matched by every *FieldError
var ErrInvalidInput = errors.New("invalid form input")

// FieldError reports the first invalid ticket form field
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// FormPolicy bounds attachments accepted by ticket forms
type FormPolicy struct {
	AllowedMIMETypes   []string
	MaxAttachmentBytes int
}

// DefaultFormPolicy accepts images, PDFs and plain text up to 10MB each
func DefaultFormPolicy() *FormPolicy {
	return &FormPolicy{
		AllowedMIMETypes:   []string{"image/png", "image/jpeg", "application/pdf", "text/plain"},
		MaxAttachmentBytes: 10 * 1024 * 1024,
	}
}

// SubmittedAttachment describes an accepted file without its content
type SubmittedAttachment struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	MIME  string `json:"mime"`
	Size  int    `json:"size"`
}

// Submission is the validated content of a ticket form
type Submission struct {
	Fields      map[string]string     `json:"fields"`
	Attachments []SubmittedAttachment `json:"attachments"`
}

// Submit validates in against form and returns what gets posted back
func (p *FormPolicy) Submit(form *widget.TicketForm, in Input) (*Submission, error) {
	if form == nil {
		return nil, &FieldError{Reason: "view has no form"}
	}
	if p == nil {
		p = DefaultFormPolicy()
	}

	out := &Submission{Fields: make(map[string]string), Attachments: []SubmittedAttachment{}}
	known := make(map[string]widget.FormField, len(form.Fields))

	for _, field := range form.Fields {
		known[field.FieldName()] = field
		value := in.Values[field.FieldName()]

		switch f := field.(type) {
		case *widget.SelectField:
			if value == "" {
				if f.Required {
					return nil, &FieldError{Field: f.Name, Reason: "is required"}
				}
				continue
			}
			if !hasOption(f.Options, value) {
				return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%q is not an allowed option", value)}
			}
			out.Fields[f.Name] = value
		case *widget.TextareaField:
			if value == "" {
				if f.Required {
					return nil, &FieldError{Field: f.Name, Reason: "is required"}
				}
				continue
			}
			if f.MaxLength > 0 && utf8.RuneCountInString(value) > f.MaxLength {
				return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("exceeds %d characters", f.MaxLength)}
			}
			out.Fields[f.Name] = value
		case *widget.AttachmentField:
			accepted, err := p.attachments(f, in.Attachments)
			if err != nil {
				return nil, err
			}
			out.Attachments = append(out.Attachments, accepted...)
		}
	}

	for _, a := range in.Attachments {
		if _, ok := known[a.Field].(*widget.AttachmentField); !ok {
			return nil, &FieldError{Field: a.Field, Reason: "is not an attachment field"}
		}
	}

	return out, nil
}

func (p *FormPolicy) attachments(f *widget.AttachmentField, all []Attachment) ([]SubmittedAttachment, error) {
	var accepted []SubmittedAttachment
	for _, a := range all {
		if a.Field != f.Name {
			continue
		}
		if len(accepted) == f.MaxItems {
			return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("accepts at most %d files", f.MaxItems)}
		}
		if p.MaxAttachmentBytes > 0 && len(a.Data) > p.MaxAttachmentBytes {
			return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%s is larger than %d bytes", a.Name, p.MaxAttachmentBytes)}
		}

		detected := mimetype.Detect(a.Data)
		if !p.allowed(detected) {
			return nil, &FieldError{Field: f.Name, Reason: fmt.Sprintf("%s has unsupported type %s", a.Name, detected.String())}
		}
		accepted = append(accepted, SubmittedAttachment{
			Field: f.Name,
			Name:  a.Name,
			MIME:  detected.String(),
			Size:  len(a.Data),
		})
	}
	return accepted, nil
}

func (p *FormPolicy) allowed(m *mimetype.MIME) bool {
	if len(p.AllowedMIMETypes) == 0 {
		return true
	}
	for _, allowed := range p.AllowedMIMETypes {
		if m.Is(allowed) {
			return true
		}
	}
	return false
}

func hasOption(options []widget.SelectOption, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
