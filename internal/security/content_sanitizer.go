package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はエピソード説明文の保存前サニタイズを行う。
type ContentSanitizer interface {
	// Sanitize は許可リスト外のタグと属性を除去したHTMLを返す。
	Sanitize(rawHTML string) string
	// StripTags はすべてのタグを除去したプレーンテキストを返す。
	StripTags(rawHTML string) string
}

type contentSanitizer struct {
	html   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はポッドキャストのshow notes向けポリシーでContentSanitizerを生成する。
// 許可タグ: p, br, a, ul, ol, li, strong, em, b, i。
// aタグはhttp/httpsの絶対URLのみ許可し、rel="nofollow noreferrer"とtarget="_blank"を付与する。
func NewContentSanitizer() ContentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &contentSanitizer{
		html:   p,
		strict: bluemonday.StrictPolicy(),
	}
}

func (s *contentSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return strings.TrimSpace(s.html.Sanitize(rawHTML))
}

func (s *contentSanitizer) StripTags(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return strings.TrimSpace(s.strict.Sanitize(rawHTML))
}
