package analysis

import "strings"

// The analysers work on a lexical approximation of C source rather than
// a parsed syntax tree. These helpers blank out regions that must never
// produce matches (comments, string and character literals, preprocessor
// lines) while preserving byte offsets and line structure, so that
// pattern matching over the remainder cannot hit false positives.

// stripComments blanks // and /* */ comments, leaving string literals
// intact. Unterminated constructs are blanked to end of input, which at
// worst suppresses matches, never invents them.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	const (
		code = iota
		lineComment
		blockComment
		stringLit
		charLit
	)
	state := code

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = lineComment
				b.WriteString("  ")
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = blockComment
				b.WriteString("  ")
				i++
			case c == '"':
				state = stringLit
				b.WriteByte(c)
			case c == '\'':
				state = charLit
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
		case lineComment:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case blockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = code
				b.WriteString("  ")
				i++
			} else if c == '\n' {
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case stringLit:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				b.WriteByte(src[i+1])
				i++
			} else if c == '"' {
				state = code
			}
		case charLit:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				b.WriteByte(src[i+1])
				i++
			} else if c == '\'' || c == '\n' {
				state = code
			}
		}
	}
	return b.String()
}

// stripLiterals blanks the contents of string and character literals in
// comment-free source, keeping the delimiters so token shapes survive.
func stripLiterals(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	const (
		code = iota
		stringLit
		charLit
	)
	state := code

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case code:
			b.WriteByte(c)
			if c == '"' {
				state = stringLit
			} else if c == '\'' {
				state = charLit
			}
		case stringLit:
			if c == '\\' && i+1 < len(src) {
				b.WriteString("  ")
				i++
			} else if c == '"' {
				b.WriteByte(c)
				state = code
			} else if c == '\n' {
				b.WriteByte(c)
				state = code
			} else {
				b.WriteByte(' ')
			}
		case charLit:
			if c == '\\' && i+1 < len(src) {
				b.WriteString("  ")
				i++
			} else if c == '\'' {
				b.WriteByte(c)
				state = code
			} else if c == '\n' {
				b.WriteByte(c)
				state = code
			} else {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// stripPreprocessor blanks preprocessor lines, including backslash
// continuations, in comment-free source.
func stripPreprocessor(src string) string {
	lines := strings.Split(src, "\n")
	continued := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if continued || strings.HasPrefix(trimmed, "#") {
			continued = strings.HasSuffix(trimmed, "\\")
			lines[i] = strings.Repeat(" ", len(line))
		} else {
			continued = false
		}
	}
	return strings.Join(lines, "\n")
}

// codeView returns source with comments and literal contents blanked:
// the view used for call-shape matching.
func codeView(src string) string {
	return stripLiterals(stripComments(src))
}

// declView additionally blanks preprocessor lines: the view used for
// file-scope declaration matching.
func declView(src string) string {
	return stripPreprocessor(codeView(src))
}

// topLevelStatements splits a declView into file-scope statement texts.
// Brace-enclosed regions (function bodies, aggregate definitions) are
// consumed without being reported; statements following a closing brace
// restart empty, so `} int g;` yields "int g".
func topLevelStatements(src string) []string {
	var stmts []string
	var cur strings.Builder
	depth := 0
	parens := 0

	flush := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s != "" {
			stmts = append(stmts, s)
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if depth == 0 {
				// The accumulated text was a definition head, not a
				// declaration; drop it with its body.
				cur.Reset()
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '(':
			if depth == 0 {
				parens++
				cur.WriteByte(c)
			}
		case ')':
			if depth == 0 {
				if parens > 0 {
					parens--
				}
				cur.WriteByte(c)
			}
		case ';':
			if depth == 0 && parens == 0 {
				flush()
			}
		default:
			if depth == 0 {
				cur.WriteByte(c)
			}
		}
	}
	flush()
	return stmts
}
