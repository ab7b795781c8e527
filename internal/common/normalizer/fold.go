package normalizer

import (
	"strings"
	"sync"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// transform.Chain keeps internal buffers, so chains are pooled per goroutine use.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(width.Fold, norm.NFKC)
	},
}

// fold maps full-width and compatibility forms to their canonical ASCII/Hangul
// equivalents and drops invalid UTF-8.
func fold(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")

	t := foldPool.Get().(transform.Transformer)
	defer foldPool.Put(t)
	t.Reset()

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
