package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "simple Tj",
			content: "BT /F1 12 Tf 72 712 Td (Hello World) Tj ET",
			want:    "Hello World",
		},
		{
			name:    "graphics operators ignored",
			content: "0 J\n0 j\n0.57 w\n0.000 G\n0.000 g\nBT /F0 12.00 Tf ET\nBT 31.19 795.77 Td (Fee is $100.)Tj ET",
			want:    "Fee is $100.",
		},
		{
			name:    "TJ kerning and word gaps",
			content: "BT [(Hel)-20(lo)-500(World)] TJ ET",
			want:    "Hello World",
		},
		{
			name:    "next line operators",
			content: "BT 14 TL (Line one) Tj T* (Line two) Tj (Line three) ' ET",
			want:    "Line one\nLine two\nLine three",
		},
		{
			name:    "separate text objects",
			content: "BT 10 700 Td (First) Tj ET BT 10 680 Td (Second) Tj ET",
			want:    "First\nSecond",
		},
		{
			name:    "horizontal move adds space",
			content: "q 1 0 0 1 10 10 cm BT 10 0 Td (A) Tj 20 0 Td (B) Tj 0 -14 Td (C) Tj ET Q",
			want:    "A B\nC",
		},
		{
			name:    "Tm on same baseline",
			content: "BT 1 0 0 1 10 700 Tm (Left) Tj 1 0 0 1 80 700 Tm (Right) Tj 1 0 0 1 10 680 Tm (Below) Tj ET",
			want:    "Left Right\nBelow",
		},
		{
			name:    "escapes and octal",
			content: `BT (Fee \(net\) is 5\045 \\ total) Tj ET`,
			want:    `Fee (net) is 5% \ total`,
		},
		{
			name:    "nested parentheses",
			content: "BT (a (b) c) Tj ET",
			want:    "a (b) c",
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj <5> Tj ET",
			want:    "HelloP",
		},
		{
			name:    "utf16 with BOM",
			content: "BT <FEFF00480069> Tj ET",
			want:    "Hi",
		},
		{
			name:    "winansi bytes",
			content: "BT (caf\\351) Tj ET",
			want:    "café",
		},
		{
			name:    "inline image skipped",
			content: "q BI /W 1 /H 1 /BPC 8 ID \x00\xff(Tj EI Q BT (after) Tj ET",
			want:    "after",
		},
		{
			name:    "comments and dictionaries",
			content: "% header\n/Span <</ActualText (x)>> BDC BT (kept) Tj ET EMC",
			want:    "kept",
		},
		{
			name:    "no text",
			content: "0.57 w 10 10 m 20 20 l S",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageText([]byte(tt.content)))
		})
	}
}

func TestParsePDFNumber(t *testing.T) {
	for input, want := range map[string]float64{"12": 12, "-3.5": -3.5, ".5": 0.5, "+7": 7, "4.": 4} {
		got, ok := parsePDFNumber(input)
		assert.True(t, ok, input)
		assert.InDelta(t, want, got, 1e-9, input)
	}
	for _, input := range []string{"", "-", ".", "Tj", "1e5", "1.2.3"} {
		_, ok := parsePDFNumber(input)
		assert.False(t, ok, input)
	}
}
