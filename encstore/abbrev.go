package encstore

import "github.com/gholt/theo2012/value"

// translationTableKey is the reserved on-disk key for the abbreviation
// table.
const translationTableKey = " subslotTranslationTable"

// commonSlots seeds the abbreviation table the first time a fresh store is
// opened. Real deployments would tune this list to their own hot slots;
// these are the ones this KB's own bootstrap and Theo1/Theo2 layers touch
// most, so they are worth a couple of bytes each.
var commonSlots = []string{
	"generalizations",
	"nrofvalues",
	"domain",
	"range",
	"inverse",
	"masterinverse",
}

// translationTable maps full slot names to 2-4 byte sigils starting with
// " T" (or " C" for "concept:"-prefixed names), created once and immutable
// thereafter.
type translationTable struct {
	toAbbrev map[string]string
	toFull   map[string]string
	next     int
}

func newTranslationTable() *translationTable {
	t := &translationTable{toAbbrev: map[string]string{}, toFull: map[string]string{}}
	for _, s := range commonSlots {
		t.add(s)
	}
	return t
}

// add allocates the next sigil for name; sigils are " T" followed by a
// base-26 letter code, long enough to stay under 4 bytes total.
func (t *translationTable) add(name string) string {
	if a, ok := t.toAbbrev[name]; ok {
		return a
	}
	prefix := " T"
	if len(name) >= len("concept:") && name[:len("concept:")] == "concept:" {
		prefix = " C"
	}
	code := t.next
	t.next++
	letters := ""
	for {
		letters = string(rune('a'+code%26)) + letters
		code = code/26 - 1
		if code < 0 {
			break
		}
	}
	abbrev := prefix + letters
	t.toAbbrev[name] = abbrev
	t.toFull[abbrev] = name
	return abbrev
}

func (t *translationTable) translate(name string) string {
	if a, ok := t.toAbbrev[name]; ok {
		return a
	}
	return name
}

func (t *translationTable) untranslate(token string) string {
	if f, ok := t.toFull[token]; ok {
		return f
	}
	return token
}

// encode renders the table as the reserved-key value: a list beginning
// with version integer 0 followed by alternating (fullName, abbreviation)
// strings.
func (t *translationTable) encode() []value.Value {
	out := []value.Value{value.Int(0)}
	for full, abbrev := range t.toAbbrev {
		out = append(out, value.String(full), value.String(abbrev))
	}
	return out
}

func decodeTranslationTable(vs []value.Value) *translationTable {
	t := &translationTable{toAbbrev: map[string]string{}, toFull: map[string]string{}}
	if len(vs) == 0 {
		return t
	}
	for i := 1; i+1 < len(vs); i += 2 {
		full, _ := vs[i].AsString()
		abbrev, _ := vs[i+1].AsString()
		t.toAbbrev[full] = abbrev
		t.toFull[abbrev] = full
		t.next++
	}
	return t
}
