package itunes

import (
	"strings"
	"testing"
)

func TestIsValidTerm(t *testing.T) {
	tests := []struct {
		name string
		term string
		want bool
	}{
		{"通常の検索語", "news", true},
		{"前後に空白", "  tech  ", true},
		{"空文字列", "", false},
		{"空白のみ", "   \t ", false},
		{"100文字ちょうど", strings.Repeat("a", 100), true},
		{"101文字", strings.Repeat("a", 101), false},
		{"空白込みでトリム後100文字", "  " + strings.Repeat("a", 100) + "  ", true},
		{"マルチバイト100文字", strings.Repeat("あ", 100), true},
		{"マルチバイト101文字", strings.Repeat("あ", 101), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidTerm(tt.term); got != tt.want {
				t.Errorf("IsValidTerm(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestSanitizeTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Tech News  ", "tech news"},
		{"PODCAST", "podcast"},
		{"already clean", "already clean"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeTerm(tt.in); got != tt.want {
			t.Errorf("SanitizeTerm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeTerm_Idempotent(t *testing.T) {
	for _, in := range []string{"  Mixed CASE  ", "\tÜber Podcast\n", "نشرة الأخبار", "x"} {
		once := SanitizeTerm(in)
		if twice := SanitizeTerm(once); twice != once {
			t.Errorf("SanitizeTerm は冪等であるべき: %q -> %q -> %q", in, once, twice)
		}
	}
}
