package asmscan

import (
	"reflect"
	"testing"
)

func TestScanLabelDirectiveArgsComment(t *testing.T) {
	recs := Scan("MyLabel: MOD foo, bar ; a comment\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Label != "MyLabel" {
		t.Errorf("Label = %q, want MyLabel", r.Label)
	}
	if r.Directive != "MOD" {
		t.Errorf("Directive = %q, want MOD", r.Directive)
	}
	if !reflect.DeepEqual(r.Args, []string{"foo", "bar"}) {
		t.Errorf("Args = %v, want [foo bar]", r.Args)
	}
	if r.Comment != "a comment" {
		t.Errorf("Comment = %q, want %q", r.Comment, "a comment")
	}
}

func TestScanIndentedLineHasNoLabel(t *testing.T) {
	recs := Scan("    FILE foo.s\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Label != "" {
		t.Errorf("Label = %q, want empty for indented line", recs[0].Label)
	}
	if recs[0].Directive != "FILE" {
		t.Errorf("Directive = %q, want FILE", recs[0].Directive)
	}
}

func TestScanLabelOnlyNoDirective(t *testing.T) {
	recs := Scan("00001A00\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Label != "00001A00" || recs[0].Directive != "" {
		t.Errorf("got %+v", recs[0])
	}
}

func TestScanCommentOnlyLine(t *testing.T) {
	recs := Scan("; just a comment\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Comment != "just a comment" || recs[0].Label != "" || recs[0].Directive != "" {
		t.Errorf("got %+v", recs[0])
	}
}

func TestScanBlankLineSkipped(t *testing.T) {
	recs := Scan("\n\n   \n")
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
}

func TestScanDanglingCommaProducesNoTrailingEmptyArg(t *testing.T) {
	recs := Scan("L: ENTRY foo,\n")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if !reflect.DeepEqual(recs[0].Args, []string{"foo"}) {
		t.Errorf("Args = %v, want [foo]", recs[0].Args)
	}
}

func TestScanCRLFLineEndings(t *testing.T) {
	recs := Scan("L: MOD foo\r\nL2: MOD bar\r\n")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Line != 1 || recs[1].Line != 2 {
		t.Errorf("Line numbers = %d, %d, want 1, 2", recs[0].Line, recs[1].Line)
	}
}

func TestScanLineNumbersOneBased(t *testing.T) {
	recs := Scan("; first\nL: MOD x\n")
	if recs[0].Line != 1 || recs[1].Line != 2 {
		t.Errorf("got line numbers %d, %d", recs[0].Line, recs[1].Line)
	}
}
