package diff

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Opcode tags describing how to turn one token sequence into another.
const (
	OpEqual   = "equal"
	OpReplace = "replace"
	OpDelete  = "delete"
	OpInsert  = "insert"
)

// TextOp is one rendering operation of a word-level text diff. Concatenating
// the Inserted spans of equal and insert/replace ops reproduces the new
// text; concatenating the Deleted spans of equal and delete/replace ops
// reproduces the old text.
type TextOp struct {
	Operation string `json:"operation"`
	Deleted   string `json:"deleted"`
	Inserted  string `json:"inserted"`
}

var nonWord = regexp.MustCompile(`\W+`)

// Tokenize splits text on runs of non-word characters, keeping the
// delimiters as tokens so the concatenation of all tokens reproduces the
// input exactly.
func Tokenize(s string) []string {
	var out []string
	last := 0
	for _, loc := range nonWord.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			out = append(out, s[last:loc[0]])
		}
		out = append(out, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}

// WordDiff computes the ordered operation list for rendering a word-level
// diff of two strings.
func WordDiff(a, b string) []TextOp {
	aw := Tokenize(a)
	bw := Tokenize(b)
	var ops []TextOp
	for _, oc := range difflib.NewMatcher(aw, bw).GetOpCodes() {
		ops = append(ops, TextOp{
			Operation: opTag(oc.Tag),
			Deleted:   strings.Join(aw[oc.I1:oc.I2], ""),
			Inserted:  strings.Join(bw[oc.J1:oc.J2], ""),
		})
	}
	return ops
}

func opTag(tag byte) string {
	switch tag {
	case 'e':
		return OpEqual
	case 'r':
		return OpReplace
	case 'd':
		return OpDelete
	case 'i':
		return OpInsert
	default:
		return ""
	}
}
