package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestSplitLines(t *testing.T) {
	raw := "Jane Doe:0908:Lagos\r\n\n   \n  John:0803:Abuja  \n"
	assert.Equal(t, []string{"Jane Doe:0908:Lagos", "John:0803:Abuja"}, SplitLines(raw))
	assert.Empty(t, SplitLines(" \n\t\n"))
}

func TestLinePreCode(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"Jane Doe:09087654321:12 Allen Ave, Lagos:PRE1234567", "1234567", true},
		{"Jane Doe:0908:Lagos: pre 123-45-67 ", "1234567", true},
		{"Jane Doe:0908:Lagos:PRE12345", "", false},
		{"Jane Doe:0908:Lagos:PRE123456789", "", false},
		{"Jane Doe:0908:Lagos", "", false},
		{"no separators at all", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := LinePreCode(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcilePreCode(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		extracted *string
		want      *string
	}{
		{"line wins over extracted", "Jane Doe:0908:Lagos:PRE1234567", strPtr("12345"), strPtr("1234567")},
		{"line wins over valid extracted", "Jane Doe:0908:Lagos:PRE1234567", strPtr("7654321"), strPtr("1234567")},
		{"falls back to extracted", "Jane Doe 0908 Lagos PRE 7654321", strPtr("PRE-7654321"), strPtr("7654321")},
		{"extracted too short", "Jane Doe 0908 Lagos", strPtr("12345"), nil},
		{"nothing available", "Jane Doe 0908 Lagos", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconcilePreCode(tt.line, tt.extracted))
		})
	}
}
