package theo1

import (
	"strconv"

	"github.com/gholt/theo2012/value"
)

// parseScalar implements the "valueFromString" entry point common to every
// layer: try int, then float, then bool, falling back to a plain string.
func parseScalar(s string) value.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return value.Bool(b)
	}
	return value.String(s)
}
