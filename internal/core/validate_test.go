package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/engagehub/submission/internal/tabular"
)

func mustTable(t *testing.T, csv string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.Read([]byte(csv), "csv")
	if err != nil {
		t.Fatalf("building test table: %v", err)
	}
	return tbl
}

func validationErr(t *testing.T, err error) *ValidationError {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return vErr
}

func TestValidate_EmptyFile(t *testing.T) {
	v := NewValidator(0)

	if _, err := v.Validate(nil, nil, nil); validationErr(t, err).Code != CodeEmptyFile {
		t.Error("nil table should fail with EMPTY_FILE")
	}

	tbl := mustTable(t, "submission_date,department,category\n")
	if _, err := v.Validate(tbl, nil, nil); validationErr(t, err).Code != CodeEmptyFile {
		t.Error("header-only table should fail with EMPTY_FILE")
	}
}

func TestValidate_MissingMinimumHeaders(t *testing.T) {
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date,notes\n2025-01-05,hello\n")

	_, err := v.Validate(tbl, nil, nil)
	vErr := validationErr(t, err)

	if vErr.Code != CodeMissingHeaders {
		t.Fatalf("expected MISSING_HEADERS, got %s", vErr.Code)
	}
	if len(vErr.Missing) != 2 {
		t.Errorf("expected 2 missing headers, got %v", vErr.Missing)
	}
	for _, want := range []string{"department", "category"} {
		found := false
		for _, m := range vErr.Missing {
			if m == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing list should contain %q, got %v", want, vErr.Missing)
		}
	}
}

func TestValidate_TemplateHeaders(t *testing.T) {
	v := NewValidator(0)
	tmpl := &UploadTemplate{
		Name:    "quarterly",
		Version: "2",
		Headers: []string{"submission_date", "department", "category", "attendees"},
	}

	tbl := mustTable(t, "submission_date,department,category\n2025-01-05,CS,Talk\n")
	_, err := v.Validate(tbl, tmpl, nil)
	vErr := validationErr(t, err)
	if vErr.Code != CodeMissingHeaders {
		t.Fatalf("expected MISSING_HEADERS, got %s", vErr.Code)
	}
	if len(vErr.Missing) != 1 || vErr.Missing[0] != "attendees" {
		t.Errorf("expected missing [attendees], got %v", vErr.Missing)
	}
}

func TestValidate_ExtraHeadersNoted(t *testing.T) {
	v := NewValidator(0)
	tmpl := &UploadTemplate{
		Headers: []string{"submission_date", "department", "category"},
	}

	tbl := mustTable(t, "submission_date,department,category,notes\n2025-01-05,CS,Talk,ok\n")
	result, err := v.Validate(tbl, tmpl, nil)
	if err != nil {
		t.Fatalf("extra headers should not fail validation: %v", err)
	}
	if len(result.Notes) != 1 || !strings.Contains(result.Notes[0], "notes") {
		t.Errorf("expected a note naming the extra header, got %v", result.Notes)
	}
}

func TestValidate_RequiredRuleHeader(t *testing.T) {
	v := NewValidator(0)
	rules := []ValidationRule{{FieldName: "attendees", Required: true, IsActive: true}}

	tbl := mustTable(t, "submission_date,department,category\n2025-01-05,CS,Talk\n")
	_, err := v.Validate(tbl, nil, rules)
	vErr := validationErr(t, err)
	if vErr.Code != CodeMissingHeaders {
		t.Fatalf("expected MISSING_HEADERS from rule, got %s", vErr.Code)
	}
}

func TestValidate_MissingValues(t *testing.T) {
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date,department,category\n2025-01-05,,Talk\n2025-01-06,,Workshop\n")

	_, err := v.Validate(tbl, nil, nil)
	vErr := validationErr(t, err)
	if vErr.Code != CodeInvalidContent {
		t.Fatalf("expected INVALID_CONTENT, got %s", vErr.Code)
	}
	if !strings.Contains(vErr.Detail, "department: 2 missing values") {
		t.Errorf("detail should count missing values, got %q", vErr.Detail)
	}
}

func TestValidate_UnparseableDateColumn(t *testing.T) {
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date,department,category\nnonsense,CS,Talk\nstill bad,Eng,Workshop\n")

	_, err := v.Validate(tbl, nil, nil)
	vErr := validationErr(t, err)
	if vErr.Code != CodeInvalidContent {
		t.Fatalf("expected INVALID_CONTENT, got %s", vErr.Code)
	}
	if !strings.Contains(vErr.Detail, "Invalid date format") {
		t.Errorf("detail should mention date format, got %q", vErr.Detail)
	}
}

func TestValidate_SomeParseableDatesPass(t *testing.T) {
	// A column with at least one parseable date passes validation; bad
	// cells are nulled later by the processor.
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date,department,category\n2025-01-05,CS,Talk\nbad-date,Eng,Workshop\n")

	if _, err := v.Validate(tbl, nil, nil); err != nil {
		t.Errorf("mixed date column should pass validation, got %v", err)
	}
}

func TestValidate_TooManyRows(t *testing.T) {
	v := NewValidator(10000)

	var sb strings.Builder
	sb.WriteString("submission_date,department,category\n")
	for i := 0; i < 10001; i++ {
		fmt.Fprintf(&sb, "2025-01-05,CS,Talk%d\n", i)
	}

	tbl := mustTable(t, sb.String())
	_, err := v.Validate(tbl, nil, nil)
	vErr := validationErr(t, err)
	if vErr.Code != CodeTooManyRows {
		t.Fatalf("expected TOO_MANY_ROWS, got %s", vErr.Code)
	}
	if !strings.Contains(vErr.Detail, "10001") || !strings.Contains(vErr.Detail, "10000") {
		t.Errorf("detail should carry count and limit, got %q", vErr.Detail)
	}
}

func TestValidate_Success(t *testing.T) {
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date,department,category,notes\n2025-01-05,CS,Talk,ok\n2025-01-06,Eng,Workshop,x\n")

	result, err := v.Validate(tbl, nil, nil)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if result.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", result.Rows)
	}
	if len(result.Headers) != 4 {
		t.Errorf("expected 4 resolved headers, got %v", result.Headers)
	}
}

func TestValidate_HeaderCheckShortCircuitsContent(t *testing.T) {
	// Missing headers must be reported before content problems.
	v := NewValidator(0)
	tbl := mustTable(t, "submission_date\n,\nbad,\n")

	_, err := v.Validate(tbl, nil, nil)
	if validationErr(t, err).Code != CodeMissingHeaders {
		t.Error("header failure should short-circuit content check")
	}
}
