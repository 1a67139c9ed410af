// Package cmdline is a line-oriented command interpreter for byte-at-a-time
// consoles: a line editor fed by a non-blocking byte source, a tokenizer,
// and a static command table searched in order.
package cmdline

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// Tokenize splits line into at most maxWords words. See AppendWords.
func Tokenize(line []byte, maxWords int) [][]byte {
	return AppendWords(nil, line, maxWords)
}

// AppendWords appends the words of line to dst and returns the extended
// slice. Words are separated by runs of space, tab, CR or LF. A word opening
// with a double quote runs to the closing quote, spaces included, and the
// quotes are not part of it; a lone quote at the very end of the line is an
// ordinary word. Words alias line and are only valid until it is modified.
//
// Once maxWords words were collected the rest of the line is ignored.
func AppendWords(dst [][]byte, line []byte, maxWords int) [][]byte {
	count := 0
	i := 0
	for i < len(line) {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i == len(line) {
			break
		}
		if count >= maxWords {
			break
		}
		var start int
		if line[i] == '"' && i+1 < len(line) {
			i++
			start = i
			for i < len(line) && line[i] != '"' {
				i++
			}
		} else {
			start = i
			for i < len(line) && !isSpace(line[i]) {
				i++
			}
		}
		dst = append(dst, line[start:i:i])
		count++
		// the delimiter is consumed with the word
		if i < len(line) && (isSpace(line[i]) || line[i] == '"') {
			i++
		}
	}
	return dst
}
