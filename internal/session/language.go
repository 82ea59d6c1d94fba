package session

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

const plainText = "plaintext"

// languageFor names the editor language for path, lowercased.
func languageFor(path string) string {
	if path == "" {
		return ""
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		return plainText
	}
	return strings.ToLower(lexer.Config().Name)
}
