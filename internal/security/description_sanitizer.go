// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer はプロジェクト説明文のHTMLを許可リストベースで
// サニタイズし、一覧表示用のプレーンテキスト抜粋を生成する。
package security

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// DefaultExcerptLength は一覧表示用抜粋の既定文字数（コードポイント単位）。
const DefaultExcerptLength = 200

// DescriptionSanitizer はプロジェクト説明文のサニタイズ機能のインターフェースを定義する。
type DescriptionSanitizer interface {
	// Sanitize は説明文のHTMLを安全なサブセットに変換する。
	// 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, h3, h4, a。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string

	// Excerpt はHTMLからテキストのみを抽出し、先頭maxRunes文字で切り詰める。
	// 切り詰めた場合は末尾に "…" を付与する。
	Excerpt(rawHTML string, maxRunes int) string
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemondayのPolicyはスレッドセーフなので共有して使用する。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerの新しいインスタンスを生成する。
//   - aタグはhttp/https/mailtoのhrefのみ許可し、rel="nofollow noopener noreferrer" と target="_blank" を付与
//   - script, style, iframe, img および全てのon*属性は除去
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "h3", "h4",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &descriptionSanitizer{policy: p}
}

// Sanitize は説明文のHTMLを安全なサブセットに変換する。
func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.policy.Sanitize(rawHTML))
}

// Excerpt はHTMLからテキストのみを抽出し、先頭maxRunes文字で切り詰める。
// 連続する空白は1つにまとめる。maxRunesが0以下の場合はDefaultExcerptLengthを使う。
func (s *descriptionSanitizer) Excerpt(rawHTML string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}

	text := extractText(rawHTML)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + "…"
}

// extractText はHTMLトークンを走査してテキストノードを連結する。
// script/style要素の中身は無視する。
func extractText(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))

	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF 以外のエラーでもそれまでのテキストを返す
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextElement(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextElement(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextElement(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
