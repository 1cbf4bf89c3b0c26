package main

import (
	"fmt"

	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/theo2"
	"github.com/gholt/theo2012/value"
)

// cmdGet implements `theokb get <location>`, printing one line per stored
// value.
func cmdGet(store *theo2.Store, args []string) error {
	if len(args) != 1 {
		return storeerr.Usagef("theokb.get", "", "usage: get <location>")
	}
	loc, err := parseLocation(args[0], store)
	if err != nil {
		return err
	}
	vs, err := store.Get(loc)
	if err != nil {
		return err
	}
	for _, v := range vs {
		fmt.Println(renderValue(v))
	}
	return nil
}

// cmdAdd implements `theokb add <location> <value>`, where <location> must
// be a query (entity+slot) and <value> is either a nested location literal
// (a Pointer) or a scalar literal parsed via Store.ValueFromString.
func cmdAdd(store *theo2.Store, args []string) error {
	if len(args) != 2 {
		return storeerr.Usagef("theokb.add", "", "usage: add <location> <value>")
	}
	loc, err := parseLocation(args[0], store)
	if err != nil {
		return err
	}
	v, err := parseValueArg(args[1], store)
	if err != nil {
		return err
	}
	return store.AddValue(loc, v)
}

// cmdDelete implements `theokb delete <location>`, where <location> names
// either a belief directly (ends in =value) or, given a value argument,
// a query plus the value to remove.
func cmdDelete(store *theo2.Store, args []string) error {
	switch len(args) {
	case 1:
		loc, err := parseLocation(args[0], store)
		if err != nil {
			return err
		}
		return store.L1().Super().Delete(loc, true, false)
	case 2:
		loc, err := parseLocation(args[0], store)
		if err != nil {
			return err
		}
		v, err := parseValueArg(args[1], store)
		if err != nil {
			return err
		}
		belief := value.NewLocation(loc.Entity, append(append([]value.LocElem{}, loc.Path...), value.Ref(v))...)
		return store.DeleteValue(belief, true)
	default:
		return storeerr.Usagef("theokb.delete", "", "usage: delete <location> [value]")
	}
}

// cmdCreateEntity implements `theokb create-entity <name> <generalization-location>`.
func cmdCreateEntity(store *theo2.Store, args []string) error {
	if len(args) != 2 {
		return storeerr.Usagef("theokb.create-entity", "", "usage: create-entity <name> <generalization-location>")
	}
	genLoc, err := parseLocation(args[1], store)
	if err != nil {
		return err
	}
	return store.CreatePrimitiveEntity(args[0], genLoc)
}

// cmdCreateSlot implements `theokb create-slot <name>`.
func cmdCreateSlot(store *theo2.Store, args []string) error {
	if len(args) != 1 {
		return storeerr.Usagef("theokb.create-slot", "", "usage: create-slot <name>")
	}
	return store.CreateSlot(args[0])
}

// cmdStats implements `theokb stats`.
func cmdStats(store *theo2.Store, args []string) error {
	fmt.Println(store.Stats(opts.Extended).String())
	return nil
}

func parseValueArg(tok string, store *theo2.Store) (value.Value, error) {
	if len(tok) > 0 && tok[0] == '<' {
		loc, err := parseLocation(tok, store)
		if err != nil {
			return value.Value{}, err
		}
		return value.Pointer(loc), nil
	}
	return store.ValueFromString(tok), nil
}

func renderValue(v value.Value) string { return v.String() }
