package utils

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts Markdown to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return Sanitize(buf.String()), nil
}

// TruncateWordsHTML keeps the first n words of an HTML fragment, appending an
// ellipsis when text was cut and closing any tags left open.
func TruncateWordsHTML(fragment string, n int) string {
	if n <= 0 {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var out strings.Builder
	var open []string
	words := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return out.String()
			}
			return closeTags(&out, open)
		case html.TextToken:
			text := string(z.Text())
			cut, count, truncated := takeWords(text, n-words)
			words += count
			out.WriteString(html.EscapeString(cut))
			if truncated {
				out.WriteString(" …")
				return closeTags(&out, open)
			}
		case html.StartTagToken:
			tok := z.Token()
			out.WriteString(tok.String())
			if !isVoid(tok.Data) {
				open = append(open, tok.Data)
			}
		case html.EndTagToken:
			tok := z.Token()
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == tok.Data {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
			out.WriteString(tok.String())
		case html.SelfClosingTagToken:
			out.WriteString(z.Token().String())
		}
	}
}

// takeWords returns the prefix of s holding at most max words, the number of
// words it holds, and whether more words followed.
func takeWords(s string, max int) (string, int, bool) {
	count := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			if count == max {
				return strings.TrimRightFunc(s[:i], unicode.IsSpace), count, true
			}
			count++
			inWord = true
		}
	}
	return s, count, false
}

func closeTags(out *strings.Builder, open []string) string {
	for i := len(open) - 1; i >= 0; i-- {
		out.WriteString("</" + open[i] + ">")
	}
	return out.String()
}

func isVoid(tag string) bool {
	switch tag {
	case "br", "hr", "img", "input", "meta", "link", "area", "base", "col", "embed", "source", "track", "wbr":
		return true
	}
	return false
}

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans rendered HTML to prevent XSS attacks.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// StripTags removes all markup from reader input such as comment bodies and names.
func StripTags(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
