package cord

// Op is a single edit operation produced by CreateOps and consumed by ApplyOps.
type Op struct {
	Kind  OpKind
	Pos   int
	Text  string // for OpInsert
	Count int    // for OpDelete: number of runes removed
}

// OpKind discriminates the edit operation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpDelete
)

// CreateOps diffs the cord's current text against target and returns the
// minimal ops needed to transform the former into the latter. The diff
// strategy is a common-prefix/common-suffix reduction: it is not a general
// LCS diff, but for the authorship-propagation use case (a revised draft of
// mostly-unchanged text) it correctly isolates the changed span so that only
// that span's authorship is rewritten.
func (c *Cord) CreateOps(target string) []Op {
	src := c.text
	dst := []rune(target)

	prefix := 0
	for prefix < len(src) && prefix < len(dst) && src[prefix] == dst[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(src)-prefix && suffix < len(dst)-prefix &&
		src[len(src)-1-suffix] == dst[len(dst)-1-suffix] {
		suffix++
	}

	delStart := prefix
	delEnd := len(src) - suffix
	insText := string(dst[prefix : len(dst)-suffix])

	ops := make([]Op, 0, 2)
	if delEnd > delStart {
		ops = append(ops, Op{Kind: OpDelete, Pos: delStart, Count: delEnd - delStart})
	}
	if insText != "" {
		ops = append(ops, Op{Kind: OpInsert, Pos: delStart, Text: insText})
	}
	return ops
}

// ApplyOps applies ops in order, attributing any inserted text to author.
func (c *Cord) ApplyOps(ops []Op, author string) error {
	for _, op := range ops {
		switch op.Kind {
		case OpDelete:
			if err := c.ApplyDelete(op.Pos, op.Pos+op.Count); err != nil {
				return err
			}
		case OpInsert:
			if err := c.ApplyInsert(op.Pos, op.Text, author); err != nil {
				return err
			}
		}
	}
	return nil
}

// MaxRecentAuthors bounds the recent-authors list maintained alongside a cord.
const MaxRecentAuthors = 8

// UpdateAuthors implements the recent-authors tracking rule: if new already
// sits at the front of authors, it reports no change (changed=false); otherwise
// it returns a new slice with new at the front, older entries shifted right,
// capped at MaxRecentAuthors.
func UpdateAuthors(authors []string, newAuthor string) (updated []string, changed bool) {
	if len(authors) > 0 && authors[0] == newAuthor {
		return authors, false
	}
	next := make([]string, 0, MaxRecentAuthors)
	next = append(next, newAuthor)
	for _, a := range authors {
		if a == newAuthor {
			continue
		}
		next = append(next, a)
		if len(next) == MaxRecentAuthors {
			break
		}
	}
	return next, true
}
