package entity

import (
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/value"
)

// values fetches the raw value set addressed by this view, which must be a
// Query -- a Query view additionally implements this RTWBag-style contract.
func (v *View) values() ([]value.Value, error) {
	return v.layer.Get(v.loc)
}

// Size returns the number of values currently stored at this query.
func (v *View) Size() (int, error) {
	vs, err := v.values()
	if err != nil {
		return 0, err
	}
	return len(vs), nil
}

// IsEmpty reports whether this query currently holds no values.
func (v *View) IsEmpty() (bool, error) {
	n, err := v.Size()
	return n == 0, err
}

// Contains reports whether val is among this query's stored values.
func (v *View) Contains(val value.Value) (bool, error) {
	vs, err := v.values()
	if err != nil {
		return false, err
	}
	for _, e := range vs {
		if e.Equal(val) {
			return true, nil
		}
	}
	return false, nil
}

// IntIter returns every Int value currently stored at this query.
func (v *View) IntIter() ([]int64, error) {
	vs, err := v.values()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(vs))
	for _, e := range vs {
		if i, ok := e.AsInt(); ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// StringIter returns every String value currently stored at this query.
func (v *View) StringIter() ([]string, error) {
	vs, err := v.values()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vs))
	for _, e := range vs {
		if s, ok := e.AsString(); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// EntityIter returns a View for every Pointer value currently stored at
// this query, each wrapping the pointer's target location.
func (v *View) EntityIter() ([]*View, error) {
	vs, err := v.values()
	if err != nil {
		return nil, err
	}
	out := make([]*View, 0, len(vs))
	for _, e := range vs {
		if loc, ok := e.AsPointer(); ok {
			out = append(out, New(v.layer, loc))
		}
	}
	return out, nil
}

// Into1Int returns this query's sole Int value, or ok=false if absent.
func (v *View) Into1Int() (int64, bool, error) {
	vs, err := v.values()
	if err != nil {
		return 0, false, err
	}
	if len(vs) == 0 {
		return 0, false, nil
	}
	i, ok := vs[0].AsInt()
	return i, ok, nil
}

// Into1String returns this query's sole String value, or ok=false if
// absent.
func (v *View) Into1String() (string, bool, error) {
	vs, err := v.values()
	if err != nil {
		return "", false, err
	}
	if len(vs) == 0 {
		return "", false, nil
	}
	s, ok := vs[0].AsString()
	return s, ok, nil
}

// Into1Entity returns a View for this query's sole Pointer value, or
// ok=false if absent.
func (v *View) Into1Entity() (*View, bool, error) {
	vs, err := v.values()
	if err != nil {
		return nil, false, err
	}
	if len(vs) == 0 {
		return nil, false, nil
	}
	loc, ok := vs[0].AsPointer()
	if !ok {
		return nil, false, nil
	}
	return New(v.layer, loc), true, nil
}

// Need1Int is Into1Int but raises NotFound when the value is absent.
func (v *View) Need1Int() (int64, error) {
	i, ok, err := v.Into1Int()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, storeerr.New(storeerr.NotFound, "entity.need1Int", v.loc.String())
	}
	return i, nil
}

// Need1String is Into1String but raises NotFound when the value is absent.
func (v *View) Need1String() (string, error) {
	s, ok, err := v.Into1String()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", storeerr.New(storeerr.NotFound, "entity.need1String", v.loc.String())
	}
	return s, nil
}

// Need1Entity is Into1Entity but raises NotFound when the value is absent.
func (v *View) Need1Entity() (*View, error) {
	e, ok, err := v.Into1Entity()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storeerr.New(storeerr.NotFound, "entity.need1Entity", v.loc.String())
	}
	return e, nil
}
