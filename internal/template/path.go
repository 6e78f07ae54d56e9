package template

import (
	"fmt"
	"strings"
)

// Path is the parsed form of a ${...} expression: a root name followed by
// a sequence of key and index steps (args.query, array[0].text).
type Path struct {
	Root  string
	Steps []Step
}

// Step is one traversal step in a path.
type Step struct {
	Key   string
	Index int
	IsIdx bool
}

// String reassembles the path into its source form.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Root)
	for _, s := range p.Steps {
		if s.IsIdx {
			fmt.Fprintf(&b, "[%d]", s.Index)
		} else {
			b.WriteByte('.')
			b.WriteString(s.Key)
		}
	}
	return b.String()
}

// ParsePath parses a dotted-path expression with optional numeric indexing.
// Grammar: ident ( "." ident | "[" digits "]" )*
func ParsePath(expr string) (Path, error) {
	s := &scanner{src: expr}

	root, err := s.ident()
	if err != nil {
		return Path{}, err
	}

	p := Path{Root: root}
	for !s.done() {
		switch c := s.peek(); c {
		case '.':
			s.next()
			key, err := s.ident()
			if err != nil {
				return Path{}, err
			}
			p.Steps = append(p.Steps, Step{Key: key})
		case '[':
			s.next()
			idx, err := s.index()
			if err != nil {
				return Path{}, err
			}
			p.Steps = append(p.Steps, Step{Index: idx, IsIdx: true})
		default:
			return Path{}, fmt.Errorf("unexpected character %q in path %q", c, expr)
		}
	}

	return p, nil
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) next() byte {
	c := s.src[s.pos]
	s.pos++
	return c
}

func (s *scanner) ident() (string, error) {
	start := s.pos
	for !s.done() {
		c := s.peek()
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
			s.next()
			continue
		}
		break
	}
	if s.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d in %q", start, s.src)
	}
	name := s.src[start:s.pos]
	if c := name[0]; c >= '0' && c <= '9' {
		return "", fmt.Errorf("identifier %q may not start with a digit", name)
	}
	return name, nil
}

func (s *scanner) index() (int, error) {
	start := s.pos
	for !s.done() && s.peek() >= '0' && s.peek() <= '9' {
		s.next()
	}
	if s.pos == start {
		return 0, fmt.Errorf("expected digits at offset %d in %q", start, s.src)
	}
	n := 0
	for _, c := range s.src[start:s.pos] {
		n = n*10 + int(c-'0')
	}
	if s.done() || s.next() != ']' {
		return 0, fmt.Errorf("unterminated index in %q", s.src)
	}
	return n, nil
}
