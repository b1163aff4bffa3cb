package highlight

import (
	"fmt"
	"testing"
)

func bracket(class Class, token string) string {
	return fmt.Sprintf("[%s:%s]", class, token)
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keyword", "if x", "[keyword:if] x"},
		{"keyword needs word boundary", "iffy", "iffy"},
		{"number", "wait 42s", "wait 42s"},
		{"standalone number", "wait 42 s", "wait [number:42] s"},
		{"double quoted string", `say "hi there"`, `say [string:"hi there"]`},
		{"single quoted string", `x = 'a'`, `x = [string:'a']`},
		{"escaped quote in string", `"a\"b"`, `[string:"a\"b"]`},
		{"comment to end of line", "x // note 1\ny", "x [comment:// note 1]\ny"},
		{"keyword inside string is not split", `"return"`, `[string:"return"]`},
		{"mixed", "const n = 3", "[keyword:const] n = [number:3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.in, bracket, nil)
			if got != tt.want {
				t.Errorf("Highlight(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHTML(t *testing.T) {
	got := HTML("```if a < 1```")
	want := "```<span class=\"keyword\">if</span> a &lt; <span class=\"number\">1</span>```"
	if got != want {
		t.Errorf("HTML() = %q, want %q", got, want)
	}
}

func TestApplies(t *testing.T) {
	if Applies("plain text") {
		t.Error("plain text must not be highlighted")
	}
	if !Applies("```go\nreturn 1\n```") {
		t.Error("fenced text must be highlighted")
	}
}
