package parse

import (
	"fmt"
	"strings"
	"testing"
)

func TestCSVBasic(t *testing.T) {
	cols, rows, truncated := CSV("a,b,c\n1,2,3\n4,5,6\n")
	if truncated {
		t.Error("unexpected truncation")
	}
	if len(cols) != 3 || cols[0] != "a" || cols[2] != "c" {
		t.Fatalf("columns = %v", cols)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["a"] != "1" || rows[1]["c"] != "6" {
		t.Errorf("unexpected row values: %v", rows)
	}
}

func TestCSVQuotedFields(t *testing.T) {
	in := "name,comment\nalice,\"He said \"\"hi\"\", ok\"\nbob,\"line1\nline2\"\n"
	_, rows, _ := CSV(in)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["comment"] != `He said "hi", ok` {
		t.Errorf("comment = %q", rows[0]["comment"])
	}
	if rows[1]["comment"] != "line1\nline2" {
		t.Errorf("multiline comment = %q", rows[1]["comment"])
	}
}

func TestCSVSyntheticAndDuplicateHeaders(t *testing.T) {
	cols, rows, _ := CSV(",b,,b\n1,2,3,4\n")
	want := []string{"col0", "b", "col2"}
	if len(cols) != len(want) {
		t.Fatalf("columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns = %v, want %v", cols, want)
		}
	}
	// Last duplicated cell wins.
	if rows[0]["b"] != "4" {
		t.Errorf("b = %v, want 4", rows[0]["b"])
	}
}

func TestCSVRaggedRows(t *testing.T) {
	_, rows, _ := CSV("a,b,c\n1,2\n1,2,3,4\n")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["c"] != "" {
		t.Errorf("missing trailing field should be empty, got %v", rows[0]["c"])
	}
	if _, ok := rows[1]["col3"]; ok {
		t.Error("extra field should be ignored")
	}
}

func TestCSVBlankLinesAndCRLF(t *testing.T) {
	_, rows, _ := CSV("a,b\r\n\r\n1,2\r\n\r\n3,4\r\n")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1]["b"] != "4" {
		t.Errorf("b = %v", rows[1]["b"])
	}
}

func TestCSVByteOrderMark(t *testing.T) {
	cols, rows, _ := CSV("\uFEFFa,b\n1,2\n")
	if len(cols) != 2 || cols[0] != "a" {
		t.Fatalf("columns = %v, want BOM stripped from first header", cols)
	}
	if rows[0]["a"] != "1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCSVEmptyInput(t *testing.T) {
	cols, rows, _ := CSV("")
	if cols != nil || rows != nil {
		t.Errorf("empty input should yield nothing, got %v %v", cols, rows)
	}
}

func TestCSVRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 20010; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	_, rows, truncated := CSV(b.String())
	if len(rows) != 20000 {
		t.Fatalf("rows = %d, want 20000", len(rows))
	}
	if !truncated {
		t.Error("expected truncation to be reported")
	}
}
