package core

// validate.go checks a parsed file's structure and content before any row
// is committed. Checks run in a fixed order and stop at the first failure:
//  1. emptiness  2. headers  3. content  4. row-count bound
// The processor is never invoked for a file that failed validation.

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/engagehub/submission/internal/tabular"
)

// MinimumHeaders is the built-in header policy applied when no template is
// supplied with an upload.
var MinimumHeaders = []string{"submission_date", "department", "category"}

// DefaultMaxRows bounds file size at validation time.
const DefaultMaxRows = 10000

// Validator checks uploaded tables against a template or the built-in
// minimum-header policy.
type Validator struct {
	maxRows int
}

// NewValidator creates a validator with the given row ceiling.
// Non-positive values fall back to DefaultMaxRows.
func NewValidator(maxRows int) *Validator {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Validator{maxRows: maxRows}
}

// Validate runs the ordered checks over a parsed table. tmpl may be nil, in
// which case the minimum-header policy applies. rules contribute extra
// required headers; their regex/bounds/allowed-set fields are not evaluated
// by the current pipeline.
// On failure the returned error is a *ValidationError.
func (v *Validator) Validate(tbl *tabular.Table, tmpl *UploadTemplate, rules []ValidationRule) (*ValidationResult, error) {
	if tbl == nil || tbl.RowCount() == 0 {
		return nil, &ValidationError{
			Code:   CodeEmptyFile,
			Detail: "File is empty or could not be read",
		}
	}

	result := &ValidationResult{
		Rows:    tbl.RowCount(),
		Headers: tbl.Headers,
	}

	if err := v.validateHeaders(tbl, tmpl, rules, result); err != nil {
		return nil, err
	}

	if err := v.validateContent(tbl); err != nil {
		return nil, err
	}

	if tbl.RowCount() > v.maxRows {
		return nil, &ValidationError{
			Code: CodeTooManyRows,
			Detail: fmt.Sprintf("File contains too many rows (%d). Maximum allowed: %d",
				tbl.RowCount(), v.maxRows),
		}
	}

	slog.Debug("file validation successful", "rows", result.Rows)
	return result, nil
}

// validateHeaders requires the file's header set to be a superset of the
// template's headers when one is supplied, or of the minimum set otherwise.
// Extra headers are permitted and only noted.
func (v *Validator) validateHeaders(tbl *tabular.Table, tmpl *UploadTemplate, rules []ValidationRule, result *ValidationResult) error {
	idx := tbl.HeaderIndex()

	required := MinimumHeaders
	if tmpl != nil {
		required = tmpl.Headers
	}
	for _, r := range rules {
		if r.Required {
			required = append(required, r.FieldName)
		}
	}

	var missing []string
	seen := make(map[string]struct{}, len(required))
	for _, h := range required {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := idx[key]; !ok {
			missing = append(missing, h)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return NewMissingHeadersError(missing)
	}

	if tmpl != nil {
		tmplSet := make(map[string]struct{}, len(tmpl.Headers))
		for _, h := range tmpl.Headers {
			tmplSet[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
		}
		var extra []string
		for _, h := range tbl.Headers {
			if _, ok := tmplSet[strings.ToLower(h)]; !ok {
				extra = append(extra, h)
			}
		}
		if len(extra) > 0 {
			note := "Extra headers found: " + strings.Join(extra, ", ")
			result.Notes = append(result.Notes, note)
			slog.Warn("extra headers in upload", "headers", strings.Join(extra, ", "))
		}
	}

	return nil
}

// validateContent verifies the minimum-required columns present in the file
// have no missing values, and that the submission_date column is coercible
// to calendar dates. A column with no parseable dates at all fails
// validation; individual bad cells are left for the processor to null.
func (v *Validator) validateContent(tbl *tabular.Table) error {
	idx := tbl.HeaderIndex()
	var errs []string

	for _, header := range MinimumHeaders {
		pos, ok := idx[header]
		if !ok {
			continue
		}
		missing := 0
		for i := 0; i < tbl.RowCount(); i++ {
			if IsNullMarker(tbl.Cell(i, pos)) {
				missing++
			}
		}
		if missing > 0 {
			errs = append(errs, fmt.Sprintf("%s: %d missing values", header, missing))
		}
	}

	if pos, ok := idx["submission_date"]; ok {
		nonEmpty, parseable := 0, 0
		for i := 0; i < tbl.RowCount(); i++ {
			cell := tbl.Cell(i, pos)
			if IsNullMarker(cell) {
				continue
			}
			nonEmpty++
			if _, ok := ParseDate(cell); ok {
				parseable++
			}
		}
		if nonEmpty > 0 && parseable == 0 {
			errs = append(errs, "submission_date: Invalid date format")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Code:   CodeInvalidContent,
			Detail: "Content validation failed: " + strings.Join(errs, "; "),
		}
	}

	return nil
}
