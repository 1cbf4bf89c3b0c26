package encstore

import (
	"encoding/hex"
	"strings"

	"github.com/gholt/theo2012/value"
)

// Reserved key sigils. Double-space is the metadata sigil; plain slot names
// may not contain spaces, so these can never collide with a real key.
const (
	sigilSubslotList = "  S"
	sigilDirectory   = "  D"
	sigilPartition   = "  #F"
	sigilSubslotID   = "  =H"
)

// hashCharset is the 93-character alphabet h2 draws from: one character
// from length mod 93, another from summed-char mod 93.
const hashCharset = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}"

// collisionCharsetLen is the number of collision bytes, which cycle ASCII
// 32-126.
const collisionCharsetLen = 126 - 32 + 1

// canonicalString is the string rendering h2 hashes over. Double comparisons
// must be bitwise, so this uses the hex of the canonical byte encoding
// rather than a human string, meaning two values that render identically as
// text but differ in byte encoding never share a hash input (their h2
// values can still collide, as any two inputs can).
func canonicalString(v value.Value) string {
	return hex.EncodeToString(value.ToBytes(v))
}

// h2 computes a deterministic two-character hash of v for use in a slot's
// subslot key. Collisions are tolerated; enumeration via the directory key
// still works regardless.
func h2(v value.Value) string {
	s := canonicalString(v)
	if len(s) == 0 {
		return string(hashCharset[0]) + string(hashCharset[0])
	}
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += int(s[i])
	}
	c1 := hashCharset[len(s)%len(hashCharset)]
	c2 := hashCharset[sum%len(hashCharset)]
	return string(c1) + string(c2)
}

// collisionByte returns the i'th candidate collision byte, cycling ASCII
// 32-126.
func collisionByte(i int) byte {
	return byte(32 + (i % collisionCharsetLen))
}

// locKey is the growing string key plus bookkeeping needed while walking a
// Location: parentKeys records every "  S"-bearing ancestor key we passed
// through, in order, so subslot-list maintenance can walk back up on
// create/delete.
type locKey struct {
	key        string
	parentKeys []string
}

func (lk *locKey) descend(child string) {
	lk.parentKeys = append(lk.parentKeys, lk.key)
	lk.key = lk.key + child
}

// translate maps a slot name to its sigil via the store's abbreviation
// table, or returns the name unchanged if untranslated. The table is
// immutable once Open returns, so no lock is taken; this also lets Add and
// Delete call it while they hold s.mu.
func (s *Store) translate(slot string) string {
	return s.table.translate(slot)
}

func (s *Store) untranslate(token string) string {
	return s.table.untranslate(token)
}

// slotAddressKey builds the storemap key for loc, allocating new
// name-partition/subslot-id entries along the way when allowCreate is
// true. It returns the final key plus the ordered list of ancestor keys
// whose "  S" subslot list may need updating.
func (s *Store) slotAddressKey(loc value.Location, allowCreate bool) (*locKey, error) {
	lk := &locKey{key: loc.Entity}
	for _, elem := range loc.Path {
		if !elem.IsRef {
			lk.descend(" " + s.translate(elem.Slot))
			continue
		}
		slotKey := lk.key
		h := h2(elem.Ref.Value)
		partKey := slotKey + sigilPartition + h
		subslotID, err := s.findOrAllocSubslotID(slotKey, partKey, h, elem.Ref.Value, allowCreate)
		if err != nil {
			return nil, err
		}
		lk.descend(subslotID)
	}
	return lk, nil
}

// findOrAllocSubslotID looks up (or, if allowCreate, allocates) the
// subslot id for value v within the name-partition at partKey, appending
// collision bytes until unique.
func (s *Store) findOrAllocSubslotID(slotKey, partKey, h string, v value.Value, allowCreate bool) (string, error) {
	pairs, _ := s.sm.Get(partKey)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i].Equal(v) {
			sid, _ := pairs[i+1].AsString()
			return sid, nil
		}
	}
	if !allowCreate {
		return "", errNotFoundf("no subslot id for value in %s", partKey)
	}
	used := map[string]bool{}
	for i := 1; i < len(pairs); i += 2 {
		sid, _ := pairs[i].AsString()
		used[sid] = true
	}
	var sid string
	for i := 0; i < collisionCharsetLen; i++ {
		candidate := sigilSubslotID + h + string(collisionByte(i))
		if !used[candidate] {
			sid = candidate
			break
		}
	}
	if sid == "" {
		return "", errCollisionOverflow(partKey)
	}
	pairs = append(pairs, v, value.String(sid))
	if err := s.sm.Put(partKey, pairs); err != nil {
		return "", err
	}
	if err := s.addDirectoryEntry(slotKey, h); err != nil {
		return "", err
	}
	return sid, nil
}

func (s *Store) addDirectoryEntry(slotKey, h string) error {
	dirKey := slotKey + sigilDirectory
	hashes, _ := s.sm.Get(dirKey)
	for _, hv := range hashes {
		if hs, ok := hv.AsString(); ok && hs == h {
			return nil
		}
	}
	hashes = append(hashes, value.String(h))
	return s.sm.Put(dirKey, hashes)
}

func (s *Store) removeDirectoryEntryIfPartitionEmpty(slotKey, partKey, h string) error {
	pairs, ok := s.sm.Get(partKey)
	if ok && len(pairs) > 0 {
		return nil
	}
	if ok {
		if err := s.sm.Remove(partKey); err != nil {
			return err
		}
	}
	dirKey := slotKey + sigilDirectory
	hashes, ok := s.sm.Get(dirKey)
	if !ok {
		return nil
	}
	out := hashes[:0]
	for _, hv := range hashes {
		if hs, ok := hv.AsString(); ok && hs == h {
			continue
		}
		out = append(out, hv)
	}
	if len(out) == 0 {
		return s.sm.Remove(dirKey)
	}
	return s.sm.Put(dirKey, out)
}

// subslotListKey is the "  S" key recording immediate subslots at key.
func subslotListKey(key string) string { return key + sigilSubslotList }

func (s *Store) addSubslot(parentKey, child string) error {
	key := subslotListKey(parentKey)
	names, _ := s.sm.Get(key)
	for _, nv := range names {
		if ns, ok := nv.AsString(); ok && ns == child {
			return nil
		}
	}
	names = append(names, value.String(child))
	return s.sm.Put(key, names)
}

func (s *Store) removeSubslot(parentKey, child string) error {
	key := subslotListKey(parentKey)
	names, ok := s.sm.Get(key)
	if !ok {
		return nil
	}
	out := names[:0]
	for _, nv := range names {
		if ns, ok := nv.AsString(); ok && ns == child {
			continue
		}
		out = append(out, nv)
	}
	if len(out) == 0 {
		return s.sm.Remove(key)
	}
	return s.sm.Put(key, out)
}

// isPrimitiveEntityKey reports whether a raw storemap key names a primitive
// entity's subslot-list key (an entity name, containing no space, followed
// by "  S").
func isPrimitiveEntityKey(key string) (string, bool) {
	if !strings.HasSuffix(key, sigilSubslotList) {
		return "", false
	}
	name := key[:len(key)-len(sigilSubslotList)]
	if name == "" || strings.ContainsAny(name, " ") {
		return "", false
	}
	return name, true
}
