// Package cord implements an authorship-tracking text container: a string
// alongside a run-length-encoded table recording which author first wrote
// each span of characters.
package cord

import (
	"fmt"
)

// Run is a contiguous span of characters attributed to a single author.
type Run struct {
	Author string
	Length int
}

// Cord is a string with per-run authorship. All positions and lengths are
// expressed in Unicode scalar values (runes), not bytes.
type Cord struct {
	text []rune
	runs []Run
}

// New builds a Cord from an initial string, attributing all of it to author.
// An empty string yields a Cord with no runs.
func New(text string, author string) *Cord {
	runes := []rune(text)
	c := &Cord{text: runes}
	if len(runes) > 0 {
		c.runs = []Run{{Author: author, Length: len(runes)}}
	}
	return c
}

// String returns the cord's current text.
func (c *Cord) String() string {
	return string(c.text)
}

// Len returns the number of runes in the cord.
func (c *Cord) Len() int {
	return len(c.text)
}

// Runs returns a copy of the authorship run table.
func (c *Cord) Runs() []Run {
	out := make([]Run, len(c.runs))
	copy(out, c.runs)
	return out
}

// runIndexAt returns the run index and offset-within-run at rune position pos.
// If pos sits exactly on a boundary between two runs, it reports the run to
// the right (or, at end-of-text, len(runs) with offset 0).
func (c *Cord) runIndexAt(pos int) (idx int, offset int) {
	cursor := 0
	for i, r := range c.runs {
		if pos < cursor+r.Length {
			return i, pos - cursor
		}
		cursor += r.Length
	}
	return len(c.runs), 0
}

// ApplyInsert inserts text at pos, attributing the new span to author.
// Insertion interior to an existing run splits it into prefix/new/suffix;
// adjacent same-author runs are merged afterward.
func (c *Cord) ApplyInsert(pos int, text string, author string) error {
	if pos < 0 || pos > len(c.text) {
		return fmt.Errorf("cord: insert position %d out of range [0,%d]", pos, len(c.text))
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	newText := make([]rune, 0, len(c.text)+len(runes))
	newText = append(newText, c.text[:pos]...)
	newText = append(newText, runes...)
	newText = append(newText, c.text[pos:]...)
	c.text = newText

	idx, offset := c.runIndexAt(pos)
	newRuns := make([]Run, 0, len(c.runs)+2)
	newRuns = append(newRuns, c.runs[:idx]...)
	if idx < len(c.runs) && offset > 0 {
		// interior to run idx: split into prefix, new run, suffix.
		r := c.runs[idx]
		newRuns = append(newRuns, Run{Author: r.Author, Length: offset})
		newRuns = append(newRuns, Run{Author: author, Length: len(runes)})
		if r.Length-offset > 0 {
			newRuns = append(newRuns, Run{Author: r.Author, Length: r.Length - offset})
		}
		newRuns = append(newRuns, c.runs[idx+1:]...)
	} else {
		// boundary insert: place new run at idx, keep remainder after.
		newRuns = append(newRuns, Run{Author: author, Length: len(runes)})
		newRuns = append(newRuns, c.runs[idx:]...)
	}
	c.runs = mergeAdjacent(newRuns)
	return nil
}

// ApplyDelete removes the rune range [start,end), shrinking or removing runs
// that overlap the deleted span.
func (c *Cord) ApplyDelete(start, end int) error {
	if start < 0 || end > len(c.text) || start > end {
		return fmt.Errorf("cord: delete range [%d,%d) invalid for length %d", start, end, len(c.text))
	}
	if start == end {
		return nil
	}
	newText := make([]rune, 0, len(c.text)-(end-start))
	newText = append(newText, c.text[:start]...)
	newText = append(newText, c.text[end:]...)
	c.text = newText

	newRuns := make([]Run, 0, len(c.runs))
	cursor := 0
	for _, r := range c.runs {
		runStart, runEnd := cursor, cursor+r.Length
		cursor = runEnd
		overlapStart := max(runStart, start)
		overlapEnd := min(runEnd, end)
		removed := 0
		if overlapStart < overlapEnd {
			removed = overlapEnd - overlapStart
		}
		remaining := r.Length - removed
		if remaining > 0 {
			newRuns = append(newRuns, Run{Author: r.Author, Length: remaining})
		}
	}
	c.runs = mergeAdjacent(newRuns)
	return nil
}

// ApplyReplace deletes [start,end) and inserts text at start, attributed to author.
func (c *Cord) ApplyReplace(start, end int, text string, author string) error {
	if err := c.ApplyDelete(start, end); err != nil {
		return err
	}
	return c.ApplyInsert(start, text, author)
}

func mergeAdjacent(runs []Run) []Run {
	if len(runs) == 0 {
		return runs
	}
	out := make([]Run, 0, len(runs))
	out = append(out, runs[0])
	for _, r := range runs[1:] {
		last := &out[len(out)-1]
		if last.Author == r.Author {
			last.Length += r.Length
		} else {
			out = append(out, r)
		}
	}
	return out
}

