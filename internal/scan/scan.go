// Package scan provides the shared single-pass tokenizer primitives used by
// the inline parsers of the format adapters: ordered regexp sub-grammars,
// printf placeholder classification, and per-call protection tokens.
package scan

import (
	"regexp"
	"sort"
)

// Match is one sub-grammar hit within a scanned string. Groups[0] holds the
// full matched text, further entries the rule's capture groups.
type Match struct {
	Start, End int
	Groups     []string
}

// EmitFunc consumes one match. A non-nil error aborts the scan.
type EmitFunc func(m Match) error

type rule struct {
	re   *regexp.Regexp
	emit EmitFunc
}

// Ruleset is an ordered list of regexp sub-grammars. A single left-to-right
// scan matches all of them at once; overlapping matches resolve to the
// earliest, then the longest, then the earliest-added rule.
type Ruleset struct {
	rules []rule
}

// Rule appends a sub-grammar. The pattern must be a valid regexp.
func (rs *Ruleset) Rule(pattern string, emit EmitFunc) {
	rs.rules = append(rs.rules, rule{re: regexp.MustCompile(pattern), emit: emit})
}

type candidate struct {
	start, end int
	order      int
	groups     []string
	emit       EmitFunc
}

// Split scans source once, calling each matched rule's emit func and text for
// every unmatched span in between. Either callback returning a non-nil error
// aborts the scan with that error.
func (rs *Ruleset) Split(source string, text func(s string, start, end int) error) error {
	var all []candidate
	for order, r := range rs.rules {
		for _, loc := range r.re.FindAllStringSubmatchIndex(source, -1) {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = source[loc[2*i]:loc[2*i+1]]
				}
			}
			all = append(all, candidate{
				start:  loc[0],
				end:    loc[1],
				order:  order,
				groups: groups,
				emit:   r.emit,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		if all[i].end != all[j].end {
			return all[i].end > all[j].end
		}
		return all[i].order < all[j].order
	})

	pos := 0
	for _, c := range all {
		if c.start < pos {
			continue
		}
		if c.start > pos && text != nil {
			if err := text(source[pos:c.start], pos, c.start); err != nil {
				return err
			}
		}
		if err := c.emit(Match{Start: c.start, End: c.end, Groups: c.groups}); err != nil {
			return err
		}
		pos = c.end
	}
	if pos < len(source) && text != nil {
		if err := text(source[pos:], pos, len(source)); err != nil {
			return err
		}
	}
	return nil
}
