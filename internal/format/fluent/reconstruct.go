package fluent

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"msgconv/internal/format"
	"msgconv/internal/model"
)

// frow is one fold row: a partial key tuple and its rendered body text.
type frow struct {
	keys []model.Key
	text string
}

// reconstruct folds the flat variant matrix back into a minimal nested
// selector tree, processing selector positions right to left. Rows that
// agree on every other position collapse into one choice node, so variants
// differing only in their innermost selector share a branch. Exactly one
// row must remain after the fold; anything else means the matrix was not
// well-formed and aborts regardless of sink.
func reconstruct(msg *model.SelectMessage, sink format.Sink) (string, error) {
	rows := make([]frow, 0, len(msg.Variants))
	for _, v := range msg.Variants {
		text, err := renderPattern(v.Pattern, msg.Declarations, sink)
		if err != nil {
			return "", err
		}
		keys := make([]model.Key, len(v.Keys))
		copy(keys, v.Keys)
		rows = append(rows, frow{keys: keys, text: text})
	}

	selTexts := make([]string, len(msg.Selectors))
	for i, sel := range msg.Selectors {
		if decl, ok := msg.Declarations.Get(sel.Name); ok {
			selTexts[i] = renderSelector(decl)
		} else {
			selTexts[i] = "$" + sel.Name
		}
	}

	for pos := len(msg.Selectors) - 1; pos >= 0; pos-- {
		var order []string
		groups := map[string][]frow{}
		for _, r := range rows {
			sig := groupSignature(r.keys, pos)
			if _, ok := groups[sig]; !ok {
				order = append(order, sig)
			}
			groups[sig] = append(groups[sig], r)
		}
		newRows := make([]frow, 0, len(order))
		for _, sig := range order {
			members := sortVariants(groups[sig], pos)
			newRows = append(newRows, frow{
				keys: removeKey(members[0].keys, pos),
				text: renderSelect(selTexts[pos], members, pos),
			})
		}
		rows = newRows
	}

	if len(rows) != 1 {
		return "", format.SerializeDefect(
			fmt.Sprintf("variant matrix folded to %d rows", len(rows)), 0)
	}
	return rows[0].text, nil
}

// groupSignature identifies a row by every key position except pos.
// Catchall name hints do not participate.
func groupSignature(keys []model.Key, pos int) string {
	var sb strings.Builder
	for i, k := range keys {
		if i == pos {
			continue
		}
		if k.Catchall {
			sb.WriteString("*\x1f")
		} else {
			sb.WriteString("=" + k.Value + "\x1f")
		}
	}
	return sb.String()
}

// sortVariants orders a choice node's rows: catchall last, number literals
// before names in ascending value order, names in row order.
func sortVariants(members []frow, pos int) []frow {
	out := make([]frow, len(members))
	copy(out, members)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].keys[pos], out[j].keys[pos]
		if a.Catchall != b.Catchall {
			return !a.Catchall
		}
		if a.Catchall {
			return false
		}
		an, aerr := strconv.ParseFloat(a.Value, 64)
		bn, berr := strconv.ParseFloat(b.Value, 64)
		if (aerr == nil) != (berr == nil) {
			return aerr == nil
		}
		if aerr == nil {
			return an < bn
		}
		return false
	})
	return out
}

func removeKey(keys []model.Key, pos int) []model.Key {
	out := make([]model.Key, 0, len(keys)-1)
	out = append(out, keys[:pos]...)
	return append(out, keys[pos+1:]...)
}

func renderSelect(selText string, members []frow, pos int) string {
	explicit := map[string]bool{}
	for _, m := range members {
		if k := m.keys[pos]; !k.Catchall {
			explicit[k.Value] = true
		}
	}

	var sb strings.Builder
	sb.WriteString("{ " + selText + " ->\n")
	for _, m := range members {
		k := m.keys[pos]
		if k.Catchall {
			sb.WriteString("   *[" + catchallName(k.Value, explicit) + "]")
		} else {
			sb.WriteString("    [" + k.Value + "]")
		}
		sb.WriteString(renderBody(m.text))
		sb.WriteByte('\n')
	}
	sb.WriteByte('}')
	return sb.String()
}

// catchallName picks the fallback's display name: the key's own hint when
// it does not collide with an explicit key, else other, other1, other2, …
func catchallName(hint string, explicit map[string]bool) string {
	if hint != "" && !explicit[hint] {
		return hint
	}
	name := "other"
	for i := 1; explicit[name]; i++ {
		name = "other" + strconv.Itoa(i)
	}
	return name
}

// renderBody renders a variant body after its key. Empty and
// whitespace-only bodies become explicit string literals since plain text
// would not survive reparsing; multi-line bodies start on the next line
// with a deeper indent.
func renderBody(body string) string {
	if strings.TrimSpace(body) == "" {
		return " { " + quoteLiteral(body) + " }"
	}
	if !strings.Contains(body, "\n") {
		if lead := len(body) - len(strings.TrimLeft(body, " ")); lead > 0 {
			return " { " + quoteLiteral(body[:lead]) + " }" + body[lead:]
		}
		return " " + body
	}
	lines := strings.Split(body, "\n")
	if lines[0] != "" {
		switch lines[0][0] {
		case '[', '*', '.':
			// At the head of a line these read as a variant key or an
			// attribute marker.
			lines[0] = "{ " + quoteLiteral(lines[0][:1]) + " }" + lines[0][1:]
		}
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("\n")
		if line != "" {
			sb.WriteString(strings.Repeat(" ", 8))
			sb.WriteString(line)
		}
	}
	return sb.String()
}
