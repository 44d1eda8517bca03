package tabular

import (
	"strings"
	"testing"
)

func TestRead_CSV(t *testing.T) {
	data := []byte("submission_date,department,category\n2025-01-05,CS,Talk\n2025-01-06,Eng,Workshop\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if got := tbl.RowCount(); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}

	want := []string{"submission_date", "department", "category"}
	for i, h := range want {
		if tbl.Headers[i] != h {
			t.Errorf("header %d: expected %q, got %q", i, h, tbl.Headers[i])
		}
	}
}

func TestRead_TSV(t *testing.T) {
	data := []byte("submission_date\tdepartment\tcategory\n2025-01-05\tCS\tTalk\n")

	tbl, err := Read(data, "tsv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if tbl.RowCount() != 1 {
		t.Fatalf("expected 1 row, got %d", tbl.RowCount())
	}

	if got := tbl.Cell(0, 1); got != "CS" {
		t.Errorf("expected cell CS, got %q", got)
	}
}

func TestRead_HeaderCleaning(t *testing.T) {
	data := []byte("\uFEFF submission_date , \"department\" ,category\n2025-01-05,CS,Talk\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	want := []string{"submission_date", "department", "category"}
	for i, h := range want {
		if tbl.Headers[i] != h {
			t.Errorf("header %d: expected %q, got %q", i, h, tbl.Headers[i])
		}
	}
}

func TestRead_SkipsBlankRows(t *testing.T) {
	data := []byte("a,b\n1,2\n,\n\n3,4\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if tbl.RowCount() != 2 {
		t.Errorf("expected blank rows skipped, got %d rows", tbl.RowCount())
	}
}

func TestRead_UnsupportedExtension(t *testing.T) {
	if _, err := Read([]byte("x"), "pdf"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestRead_LegacyXLSDecodes(t *testing.T) {
	// A corrupt workbook must fail at the decoder, not on the extension:
	// xls sits in the default allow-list and has to reach the BIFF reader.
	_, err := Read([]byte("not a workbook"), "xls")
	if err == nil {
		t.Fatal("expected error for corrupt xls input")
	}
	if !strings.Contains(err.Error(), "open workbook") {
		t.Errorf("expected a decode error, got %q", err)
	}
}

func TestRead_EmptyFile(t *testing.T) {
	if _, err := Read(nil, "csv"); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestCell_RaggedRow(t *testing.T) {
	data := []byte("a,b,c\n1,2\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	if got := tbl.Cell(0, 2); got != "" {
		t.Errorf("expected empty string for missing cell, got %q", got)
	}
}

func TestHeaderIndex_CaseInsensitive(t *testing.T) {
	data := []byte("Submission_Date,Department\n2025-01-05,CS\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}

	idx := tbl.HeaderIndex()
	if _, ok := idx["submission_date"]; !ok {
		t.Error("expected lowercased header key submission_date")
	}
}

func TestRead_InvalidUTF8(t *testing.T) {
	data := []byte("a,b\n\xff\xfe,2\n")

	tbl, err := Read(data, "csv")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if tbl.RowCount() != 1 {
		t.Fatalf("expected 1 row, got %d", tbl.RowCount())
	}
}
