package source

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("a,b,c\n1,2,3\n4,5,6\n"))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	want := Table{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCSV mismatch: got %+v, want %+v", got, want)
	}
	if got.Len() != 2 {
		t.Errorf("Len = %d, want 2", got.Len())
	}
}

func TestParseCSV_Empty(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(got.Columns) != 0 || got.Len() != 0 {
		t.Errorf("Expected an empty table, got %+v", got)
	}
}

func TestParseCSV_Malformed(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("a,b\n1,2,3\n")); err == nil {
		t.Error("Expected an error for a ragged row")
	}
}

func TestTable_WriteCSV(t *testing.T) {
	table := Table{
		Columns: []string{"name", "note"},
		Rows:    [][]string{{"x", "has, comma"}},
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "name,note\nx,\"has, comma\"\n"
	if buf.String() != want {
		t.Errorf("WriteCSV mismatch: got %q, want %q", buf.String(), want)
	}

	back, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if !reflect.DeepEqual(back, table) {
		t.Errorf("Round trip mismatch: got %+v", back)
	}
}
