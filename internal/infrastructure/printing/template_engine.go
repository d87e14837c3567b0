// Package printing renders printable documents for returns.
package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// TemplateEngine renders html/template documents with locale-aware
// formatting functions.
type TemplateEngine struct {
	locale   language.Tag
	currency currency.Unit
	symbol   string
	printer  *message.Printer
	location *time.Location
	funcMap  template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithLocation sets the time zone dates are printed in
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.location = loc
	}
}

// NewTemplateEngine creates an engine for a BCP 47 locale and an ISO 4217
// currency code.
func NewTemplateEngine(locale, currencyCode string, opts ...TemplateEngineOption) (*TemplateEngine, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidLocale, fmt.Sprintf("invalid locale %q", locale), err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidLocale, fmt.Sprintf("invalid currency %q", currencyCode), err)
	}

	e := &TemplateEngine{
		locale:   tag,
		currency: unit,
		printer:  message.NewPrinter(tag),
		location: time.UTC,
	}
	// The symbol formatter prints "<symbol> <amount>"; keep the symbol only
	e.symbol = strings.TrimSpace(strings.TrimRight(e.printer.Sprint(currency.Symbol(unit.Amount(0))), "0123456789.,\u00a0 "))

	e.funcMap = template.FuncMap{
		"formatMoney":    e.formatMoney,
		"formatDecimal":  e.formatDecimal,
		"formatPercent":  e.formatPercent,
		"formatDate":     e.formatDate,
		"formatDateTime": e.formatDateTime,
		"title":          cases.Title(tag).String,
		"upper":          cases.Upper(tag).String,
		"shortUUID":      shortUUID,
		"add":            func(a, b int) int { return a + b },
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Parse parses a named template with the engine's functions
func (e *TemplateEngine) Parse(name, content string) (*template.Template, error) {
	if content == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}
	return tmpl, nil
}

// Execute renders a parsed template
func (e *TemplateEngine) Execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.Bytes(), nil
}

// GetFuncMap returns a copy of the template function map
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

// Locale returns the engine's language tag
func (e *TemplateEngine) Locale() language.Tag {
	return e.locale
}

// formatMoney formats an amount with the currency symbol and locale grouping,
// e.g. 1234.5 -> "$1,234.50" for en-US.
func (e *TemplateEngine) formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + e.symbol + e.formatDecimal(d, 2)
}

func (e *TemplateEngine) formatDecimal(d decimal.Decimal, places int) string {
	rounded := d.Round(int32(places))
	return e.printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(places)))
}

// formatPercent formats a rate, e.g. 0.0825 -> "8.25%"
func (e *TemplateEngine) formatPercent(rate decimal.Decimal) string {
	return e.formatDecimal(rate.Mul(decimal.NewFromInt(100)), 2) + "%"
}

func (e *TemplateEngine) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format("2006-01-02")
}

func (e *TemplateEngine) formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format("2006-01-02 15:04")
}

// shortUUID returns the first block of a UUID
func shortUUID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
