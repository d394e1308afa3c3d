package document

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// tjSpaceThreshold TJ数组中小于该值的字距调整视为单词间隔，单位为千分之一文本空间
const tjSpaceThreshold = -200

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokOperator
	tokArrayStart
	tokArrayEnd
	tokDelimiter
)

// contentToken 内容流中的一个词法单元
type contentToken struct {
	kind tokenKind
	text string  // 操作符、名称或数字原文
	str  []byte  // 字符串操作数解码后的字节
	num  float64 // 数字操作数
}

// contentOperand 操作符之前的操作数，数组展开为elems
type contentOperand struct {
	contentToken
	elems []contentToken
}

// contentLexer PDF内容流词法分析器
type contentLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isPDFDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *contentLexer) next() (contentToken, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return contentToken{kind: tokString, str: l.literal()}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return contentToken{kind: tokDelimiter, text: "<<"}, true
			}
			return contentToken{kind: tokString, str: l.hexString()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return contentToken{kind: tokDelimiter, text: ">>"}, true
		case c == '[':
			l.pos++
			return contentToken{kind: tokArrayStart}, true
		case c == ']':
			l.pos++
			return contentToken{kind: tokArrayEnd}, true
		case c == '/':
			l.pos++
			return contentToken{kind: tokName, text: l.regular()}, true
		case isPDFDelimiter(c):
			l.pos++
			return contentToken{kind: tokDelimiter, text: string(c)}, true
		default:
			word := l.regular()
			if num, ok := parsePDFNumber(word); ok {
				return contentToken{kind: tokNumber, text: word, num: num}, true
			}
			return contentToken{kind: tokOperator, text: word}, true
		}
	}
	return contentToken{}, false
}

// regular 读取到下一个空白或分隔符为止
func (l *contentLexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal 读取 (...) 字符串，处理嵌套括号与转义
func (l *contentLexer) literal() []byte {
	l.pos++
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\n':
			case '\r':
				// 反斜杠续行
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hexString 读取 <...> 字符串，奇数个数字时末位补0
func (l *contentLexer) hexString() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil
	}
	return out
}

// skipInlineImage 跳过 ID 与 EI 之间的内联图像数据
func (l *contentLexer) skipInlineImage() {
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isPDFSpace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isPDFSpace(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return
	}
	l.pos = len(l.data)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parsePDFNumber 解析整数或实数，不接受指数形式
func parsePDFNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	var (
		value    float64
		scale    = 1.0
		negative bool
		seenDot  bool
		digits   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case (c == '+' || c == '-') && i == 0:
			negative = c == '-'
		case c == '.' && !seenDot:
			seenDot = true
		case c >= '0' && c <= '9':
			digits++
			if seenDot {
				scale /= 10
				value += float64(c-'0') * scale
			} else {
				value = value*10 + float64(c-'0')
			}
		default:
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}

// textWriter 拼接文本片段，分隔符延迟到下一个片段写入时才生效
type textWriter struct {
	b    strings.Builder
	last byte
	sep  string
}

func (w *textWriter) lineBreak() {
	if w.b.Len() > 0 {
		w.sep = "\n"
	}
}

func (w *textWriter) space() {
	if w.b.Len() > 0 && w.sep == "" {
		w.sep = " "
	}
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	switch w.sep {
	case "\n":
		w.b.WriteByte('\n')
	case " ":
		if w.last != ' ' && w.last != '\n' && s[0] != ' ' {
			w.b.WriteByte(' ')
		}
	}
	w.sep = ""
	w.b.WriteString(s)
	w.last = s[len(s)-1]
}

// String 去掉每行末尾的空白
func (w *textWriter) String() string {
	lines := strings.Split(w.b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// pageText 从页面内容流中取出 Tj、TJ、'、" 的字符串操作数
// 文本对象之间、换行操作和纵向移动处换行，横向移动与较大的字距处补空格
func pageText(content []byte) string {
	lex := &contentLexer{data: content}
	w := &textWriter{}

	var (
		operands []contentOperand
		array    []contentToken
		depth    int
		lineY    float64
		haveY    bool
	)

	for {
		tok, ok := lex.next()
		if !ok {
			break
		}

		if depth > 0 {
			switch tok.kind {
			case tokArrayStart:
				depth++
			case tokArrayEnd:
				depth--
				if depth == 0 {
					operands = append(operands, contentOperand{contentToken: contentToken{kind: tokArrayStart}, elems: array})
					array = nil
				}
			default:
				array = append(array, tok)
			}
			continue
		}

		switch tok.kind {
		case tokArrayStart:
			depth = 1
			continue
		case tokOperator:
		default:
			operands = append(operands, contentOperand{contentToken: tok})
			continue
		}

		switch tok.text {
		case "BT", "ET", "T*":
			w.lineBreak()
		case "Td", "TD":
			if len(operands) >= 2 {
				tx, ty := operands[len(operands)-2].num, operands[len(operands)-1].num
				if ty != 0 {
					w.lineBreak()
				} else if tx != 0 {
					w.space()
				}
			}
		case "Tm":
			if len(operands) >= 6 {
				y := operands[len(operands)-1].num
				if haveY && y == lineY {
					w.space()
				} else {
					w.lineBreak()
				}
				lineY, haveY = y, true
			}
		case "Tj":
			w.write(lastString(operands))
		case "'", "\"":
			w.lineBreak()
			w.write(lastString(operands))
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].elems != nil {
				for _, el := range operands[n-1].elems {
					switch el.kind {
					case tokString:
						w.write(decodePDFString(el.str))
					case tokNumber:
						if el.num < tjSpaceThreshold {
							w.space()
						}
					}
				}
			}
		case "ID":
			lex.skipInlineImage()
		}
		operands = operands[:0]
	}

	return w.String()
}

// lastString 返回最后一个字符串操作数的文本
func lastString(operands []contentOperand) string {
	if n := len(operands); n > 0 && operands[n-1].kind == tokString {
		return decodePDFString(operands[n-1].str)
	}
	return ""
}

// decodePDFString 带BOM时按UTF-16BE解码，合法UTF-8原样保留，其余按WinAnsi解码
// 控制字符被丢弃
func decodePDFString(b []byte) string {
	var s string
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err != nil {
			return ""
		}
		s = string(decoded)
	case utf8.Valid(b):
		s = string(b)
	default:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return ""
		}
		s = string(decoded)
	}

	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return -1
		}
		if r == '\t' {
			return ' '
		}
		return r
	}, s)
}
