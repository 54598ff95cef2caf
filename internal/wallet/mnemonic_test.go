package wallet

import (
	"strings"
	"testing"
)

const vectorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	m1, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	if n := len(strings.Fields(m1)); n != 24 {
		t.Errorf("word count = %d, want 24", n)
	}
	if !ValidateMnemonic(m1) {
		t.Error("generated mnemonic should validate")
	}
	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		want     bool
	}{
		{"vector", vectorMnemonic, true},
		{"upper case", strings.ToUpper(vectorMnemonic), true},
		{"extra whitespace", "  " + strings.ReplaceAll(vectorMnemonic, " ", " \t ") + "\n", true},
		{"bad checksum", strings.Replace(vectorMnemonic, "about", "abandon", 1), false},
		{"unknown word", strings.Replace(vectorMnemonic, "about", "klingon", 1), false},
		{"too few words", "abandon abandon about", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.want {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	got := NormalizeMnemonic("  Abandon\tABOUT \n")
	if got != "abandon about" {
		t.Errorf("NormalizeMnemonic() = %q", got)
	}
}
