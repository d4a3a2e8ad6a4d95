package expression

import (
	"strings"
	"unicode"
)

// tokenKind 词法单元类型
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenPath  // 点号/下标路径，如 foo.bar[0].baz
	tokenIdent // 单段标识符（可能是函数名或路径首段）
	tokenOp    // 运算符
	tokenLParen
	tokenRParen
	tokenComma
)

// token 词法单元
type token struct {
	kind tokenKind
	text string
	num  float64
}

// lexer 表达式词法分析器
// 字符串字面量在词法层面独立成词法单元，路径替换不会触及引号内部，
// 不再需要通过统计引号数量判断“是否位于字符串内”
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// tokenize 扫描整个输入，返回词法单元序列
func (l *lexer) tokenize() ([]token, error) {
	tokens := make([]token, 0, 8)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF}, nil
	}

	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		return token{kind: tokenLParen, text: "("}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokenRParen, text: ")"}, nil
	case ch == ',':
		l.pos++
		return token{kind: tokenComma, text: ","}, nil
	case ch == '\'' || ch == '"':
		return l.lexString(ch)
	case ch >= '0' && ch <= '9':
		return l.lexNumber()
	case isIdentStart(rune(ch)):
		return l.lexPath()
	default:
		return l.lexOperator()
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

// lexString 扫描引号字符串字面量，支持反斜杠转义
func (l *lexer) lexString(quote byte) (token, error) {
	var sb strings.Builder
	l.pos++ // 跳过起始引号
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			sb.WriteByte(l.input[l.pos])
			l.pos++
			continue
		}
		if ch == quote {
			l.pos++
			return token{kind: tokenString, text: sb.String()}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{}, invalidInputsf("字符串字面量未闭合: %s", l.input)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9' || l.input[l.pos] == '.') {
		l.pos++
	}
	text := l.input[start:l.pos]
	num, err := parseNumber(text)
	if err != nil {
		return token{}, invalidInputsf("非法数字 %q", text)
	}
	return token{kind: tokenNumber, text: text, num: num}, nil
}

// lexPath 扫描标识符或点号/下标路径
// 路径段允许字母、数字、下划线和$；段之间用 . 连接，数组下标用 [n]
func (l *lexer) lexPath() (token, error) {
	start := l.pos
	hasSegments := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isIdentPart(rune(ch)) {
			l.pos++
			continue
		}
		if ch == '.' && l.pos+1 < len(l.input) && isIdentStart(rune(l.input[l.pos+1])) {
			hasSegments = true
			l.pos++
			continue
		}
		if ch == '[' {
			end := strings.IndexByte(l.input[l.pos:], ']')
			if end < 0 {
				return token{}, invalidInputsf("路径下标未闭合: %s", l.input[start:])
			}
			hasSegments = true
			l.pos += end + 1
			continue
		}
		break
	}
	text := l.input[start:l.pos]
	if hasSegments {
		return token{kind: tokenPath, text: text}, nil
	}
	return token{kind: tokenIdent, text: text}, nil
}

func (l *lexer) lexOperator() (token, error) {
	twoChar := []string{"==", "!=", ">=", "<=", "&&", "||"}
	if l.pos+1 < len(l.input) {
		pair := l.input[l.pos : l.pos+2]
		for _, op := range twoChar {
			if pair == op {
				l.pos += 2
				return token{kind: tokenOp, text: op}, nil
			}
		}
	}
	ch := l.input[l.pos]
	switch ch {
	case '+', '-', '*', '/', '%', '>', '<', '!':
		l.pos++
		return token{kind: tokenOp, text: string(ch)}, nil
	}
	return token{}, invalidInputsf("无法识别的字符 %q（位置 %d）", string(ch), l.pos)
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch == '$'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '$'
}
