package extract

import "strconv"

// DefaultIDPrefix prefixes synthesized asset ids.
const DefaultIDPrefix = "Auto_"

// Generator produces identifiers for elements that carry none.
type Generator func() string

// Sequence returns a Generator yielding prefix1, prefix2, ... A new Sequence
// starts at 1, so each extraction pass draws the same ids for the same input.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

// idSet tracks every id emitted in one pass.
type idSet struct {
	gen  Generator
	used map[string]struct{}
}

func newIDSet(gen Generator) *idSet {
	return &idSet{gen: gen, used: make(map[string]struct{})}
}

// claim records a schema-provided id and reports whether the pass already
// emitted it.
func (s *idSet) claim(id string) (string, bool) {
	_, dup := s.used[id]
	s.used[id] = struct{}{}
	return id, dup
}

// next returns a synthesized id not yet emitted in this pass.
func (s *idSet) next() string {
	for {
		id := s.gen()
		if _, taken := s.used[id]; !taken {
			s.used[id] = struct{}{}
			return id
		}
	}
}
