/*
Package value defines the data model of a parameter instance: the Key that
names a parameter and the immutable Value tagged union that holds its content.

Values are cheap to copy. Arrays, Objects and Binaries share their backing
storage, which is never written after construction; every helper that
"modifies" a Value (WithElement, WithField, Append, ...) returns a fresh copy.

	v := value.Array(value.Text("a"), value.Text("b"))
	w, _ := v.Append(value.Text("c"))
	value.Equal(v, w) // false, v is untouched

Conversion helpers (FromAny, Any) bridge to plain Go values produced by YAML,
JSON or mapstructure decoding. The JSON encoding keeps the kind alongside the
payload so that Int and Float stay distinct after a round trip.
*/
package value
