package slug

import "testing"

// TestGenerate covers typical titles, accented text, punctuation and edge
// cases.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple two words", input: "Hello World", want: "hello-world"},
		{name: "title with year", input: "Estrategias 2026", want: "estrategias-2026"},
		{name: "accents folded", input: "Táctica de presión", want: "tactica-de-presion"},
		{name: "eñe folded", input: "Año del Niño", want: "ano-del-nino"},
		{name: "punctuation collapsed", input: "¡Hola, mundo!", want: "hola-mundo"},
		{name: "apostrophe dropped", input: "it's here", want: "its-here"},
		{name: "formations keep hyphens", input: "El 4-3-3", want: "el-4-3-3"},
		{name: "file name dot", input: "Foto Final.JPG", want: "foto-final-jpg"},
		{name: "tabs and newlines", input: "a\tb\nc", want: "a-b-c"},
		{name: "underscores", input: "mi_imagen_01", want: "mi-imagen-01"},
		{name: "leading and trailing junk", input: "  --Hola--  ", want: "hola"},
		{name: "only symbols", input: "!!!", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{input: "uno dos tres", max: 100, want: "uno-dos-tres"},
		{input: "uno dos tres", max: 9, want: "uno-dos"},
		{input: "uno dos tres", max: 7, want: "uno-dos"},
		{input: "abcdefghij", max: 4, want: "abcd"},
		{input: "uno dos", max: 0, want: "uno-dos"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.input, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}
