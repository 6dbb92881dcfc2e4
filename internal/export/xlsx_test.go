package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	records := sampleRecords()

	data, err := WriteXLSX(records, nil)
	if err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Records", "Summary"} {
		if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
			t.Errorf("sheet %q missing", sheet)
		}
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Error("default Sheet1 should be removed")
	}

	vendor, err := f.GetCellValue("Records", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if vendor != "Pizza Hut" {
		t.Errorf("B2 = %q, want Pizza Hut", vendor)
	}

	// record without an amount serializes as empty, not zero
	amount, err := f.GetCellValue("Records", "E3")
	if err != nil {
		t.Fatal(err)
	}
	if amount != "" {
		t.Errorf("E3 = %q, want empty", amount)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"overlong text", 5, "over…"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
