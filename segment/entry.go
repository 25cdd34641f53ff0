package segment

import "waldb/entrycodec"

// Entry is one decoded logical record: its assigned index, its type tag,
// and the codec instance holding the decoded payload value. Callers type-
// assert Codec to the concrete type they registered for Type to reach the
// decoded value.
type Entry struct {
	Index uint32
	Type  uint8
	Codec entrycodec.Codec
}
