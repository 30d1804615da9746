package validation

import "testing"

func TestIsValidBotToken(t *testing.T) {
	valid := []string{
		"123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw",
		"1:abcdefghij",
		"99999:with_under-score123",
	}
	for _, tok := range valid {
		if !IsValidBotToken(tok) {
			t.Errorf("expected %q to be valid", tok)
		}
	}

	invalid := []string{
		"",
		"no-colon",
		"abc:defghijklmno",
		"123:short",
		"123:has spaces here",
		":AAHdqTcvCH1vGWJxf",
	}
	for _, tok := range invalid {
		if IsValidBotToken(tok) {
			t.Errorf("expected %q to be invalid", tok)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 100); got != "hello" {
		t.Errorf("expected trimmed string, got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("expected truncation, got %q", got)
	}
	if got := SanitizeString("a\x00b", 100); got != "ab" {
		t.Errorf("expected null bytes removed, got %q", got)
	}
}
