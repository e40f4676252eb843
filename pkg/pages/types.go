package pages

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/platinummonkey/laman/pkg/templater"
)

var (
	// ErrPageNotFound is returned when no page has the requested id
	ErrPageNotFound = errors.New("page not found")

	// ErrUnauthorized is returned when a user acts on another user's page
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExportDisabled is returned by Export when no object store is configured
	ErrExportDisabled = errors.New("page export is not configured")

	// ErrPageNotReady is returned when exporting a page that has no completed output
	ErrPageNotReady = errors.New("page has no completed output")

	// ErrGenerationFailed is returned when templating aborts; the page is
	// kept with status failed and no generation is charged
	ErrGenerationFailed = errors.New("page generation failed")
)

// Status is the lifecycle state of a generated page
type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Page is a generated page owned by one user
type Page struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Prompt      string         `json:"prompt"`
	HTML        string         `json:"generated_html"`
	CSS         string         `json:"generated_css,omitempty"`
	Style       string         `json:"template_style"`
	Status      Status         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ShortPrompt returns the prompt cut to length characters with "..."
// appended when it was longer.
func (p *Page) ShortPrompt(length int) string {
	if utf8.RuneCountInString(p.Prompt) <= length {
		return p.Prompt
	}
	runes := []rune(p.Prompt)
	return string(runes[:length]) + "..."
}

// Document returns the page as one standalone HTML document with its CSS inlined
func (p *Page) Document() string {
	return templater.Render(p.HTML, p.CSS)
}

// Summary is the short listing form of a page
type Summary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	ShortPrompt string    `json:"short_prompt"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summarize returns the listing form of p
func (p *Page) Summarize() Summary {
	return Summary{
		ID:          p.ID,
		Title:       p.Title,
		Status:      p.Status,
		ShortPrompt: p.ShortPrompt(100),
		CreatedAt:   p.CreatedAt,
	}
}

// Request carries the user-supplied fields of a generation or update
type Request struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Prompt        string `json:"prompt"`
	TemplateStyle string `json:"template_style,omitempty"`
}

// ValidationError reports the first invalid field of a Request
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	maxTitleLength       = 255
	maxDescriptionLength = 500
	minPromptLength      = 10
	maxPromptLength      = 2000
)

// Validate checks the request fields in order and returns the first
// failure as a *ValidationError. Lengths are counted in characters.
func (r *Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return &ValidationError{Field: "title", Message: "Please provide a title for your page."}
	case utf8.RuneCountInString(r.Title) > maxTitleLength:
		return &ValidationError{Field: "title", Message: "The title must not exceed 255 characters."}
	case strings.IndexFunc(r.Title, unicode.IsControl) >= 0:
		return &ValidationError{Field: "title", Message: "The title must be a single line of text."}
	case utf8.RuneCountInString(r.Description) > maxDescriptionLength:
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("The description must not exceed %d characters.", maxDescriptionLength),
		}
	case strings.TrimSpace(r.Prompt) == "":
		return &ValidationError{Field: "prompt", Message: "Please describe what kind of page you want to create."}
	case utf8.RuneCountInString(r.Prompt) < minPromptLength:
		return &ValidationError{Field: "prompt", Message: "Please provide at least 10 characters describing your page."}
	case utf8.RuneCountInString(r.Prompt) > maxPromptLength:
		return &ValidationError{Field: "prompt", Message: "The prompt must not exceed 2000 characters."}
	case r.TemplateStyle != "" && !templater.Style(r.TemplateStyle).Valid():
		return &ValidationError{Field: "template_style", Message: "Please select a valid template style."}
	}
	return nil
}

// Style returns the requested style, defaulting to modern
func (r *Request) Style() string {
	if r.TemplateStyle == "" {
		return string(templater.DefaultStyle)
	}
	return r.TemplateStyle
}

func (r *Request) input() templater.Input {
	return templater.Input{
		Title:       r.Title,
		Description: r.Description,
		Prompt:      r.Prompt,
		Style:       r.Style(),
	}
}

func metadataFor(out templater.Output) map[string]any {
	return map[string]any{
		"style":    string(out.Style),
		"sections": len(out.Sections),
		"keywords": out.Keywords(),
	}
}
