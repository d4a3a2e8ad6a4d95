package expression

// exprNode 表达式抽象语法树节点
type exprNode interface{}

// literalNode 字面量（数字、字符串）
type literalNode struct {
	value any
}

// pathNode 输出包路径查找
type pathNode struct {
	path string
}

// unaryNode 一元运算
type unaryNode struct {
	op      string
	operand exprNode
}

// binaryNode 二元运算
type binaryNode struct {
	op    string
	left  exprNode
	right exprNode
}

// callNode 内置函数调用
type callNode struct {
	name string
	args []exprNode
}

// parser 递归下降解析器，按优先级爬升构建AST
// 优先级（低到高）：|| → && → ==/!= → 比较 → 加减 → 乘除模 → 一元 → 基本单元
type parser struct {
	tokens []token
	pos    int
}

// parseExpression 解析完整表达式
func parseExpression(input string) (exprNode, error) {
	tokens, err := newLexer(input).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, invalidInputsf("表达式存在多余内容: %q", p.peek().text)
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// matchOp 当前词法单元是给定运算符之一时消费并返回
func (p *parser) matchOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokenOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.advance()
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (exprNode, error) {
	return p.parseBinary([]string{"||"}, p.parseAnd)
}

func (p *parser) parseAnd() (exprNode, error) {
	return p.parseBinary([]string{"&&"}, p.parseEquality)
}

func (p *parser) parseEquality() (exprNode, error) {
	return p.parseBinary([]string{"==", "!="}, p.parseComparison)
}

func (p *parser) parseComparison() (exprNode, error) {
	return p.parseBinary([]string{">=", "<=", ">", "<"}, p.parseAdditive)
}

func (p *parser) parseAdditive() (exprNode, error) {
	return p.parseBinary([]string{"+", "-"}, p.parseMultiplicative)
}

func (p *parser) parseMultiplicative() (exprNode, error) {
	return p.parseBinary([]string{"*", "/", "%"}, p.parseUnary)
}

func (p *parser) parseBinary(ops []string, next func() (exprNode, error)) (exprNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (exprNode, error) {
	if op, ok := p.matchOp("-", "!"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	tok := p.advance()
	switch tok.kind {
	case tokenNumber:
		return &literalNode{value: tok.num}, nil
	case tokenString:
		return &literalNode{value: tok.text}, nil
	case tokenPath:
		return &pathNode{path: tok.text}, nil
	case tokenIdent:
		// 标识符后跟左括号是函数调用，否则按单段路径处理
		if p.peek().kind == tokenLParen {
			return p.parseCall(tok.text)
		}
		return &pathNode{path: tok.text}, nil
	case tokenLParen:
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.advance().kind != tokenRParen {
			return nil, invalidInputsf("缺少右括号")
		}
		return node, nil
	default:
		return nil, invalidInputsf("表达式语法错误，遇到 %q", tok.text)
	}
}

func (p *parser) parseCall(name string) (exprNode, error) {
	p.advance() // 消费左括号
	args := make([]exprNode, 0, 3)
	if p.peek().kind == tokenRParen {
		p.advance()
		return &callNode{name: name, args: args}, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.advance()
		if tok.kind == tokenRParen {
			return &callNode{name: name, args: args}, nil
		}
		if tok.kind != tokenComma {
			return nil, invalidInputsf("函数 %s 参数列表语法错误", name)
		}
	}
}
