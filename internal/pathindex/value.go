package pathindex

// Value is one node of an entity record tree.
//
// It is a closed union of three variants:
//   - Scalar: a leaf (string, number, bool or nil)
//   - Mapping: keyed children
//   - Sequence: ordered children, addressed by index
//
// Trees built from Value cannot contain reference cycles, so traversal
// always terminates.
type Value interface {
	isValue()
}

// Scalar is a terminal value. V holds the decoded JSON scalar.
type Scalar struct {
	V any
}

// Mapping is a keyed container.
type Mapping map[string]Value

// Sequence is an ordered container.
type Sequence []Value

func (Scalar) isValue()   {}
func (Mapping) isValue()  {}
func (Sequence) isValue() {}

// FromAny converts a decoded JSON value (as produced by encoding/json into
// an any) into a Value tree. Maps and slices become containers; everything
// else becomes a Scalar.
func FromAny(v any) Value {
	switch node := v.(type) {
	case Value:
		return node
	case map[string]any:
		m := make(Mapping, len(node))
		for k, child := range node {
			m[k] = FromAny(child)
		}
		return m
	case []any:
		s := make(Sequence, len(node))
		for i, child := range node {
			s[i] = FromAny(child)
		}
		return s
	case []map[string]any:
		s := make(Sequence, len(node))
		for i, child := range node {
			s[i] = FromAny(child)
		}
		return s
	case map[string]string:
		m := make(Mapping, len(node))
		for k, child := range node {
			m[k] = Scalar{V: child}
		}
		return m
	case []string:
		s := make(Sequence, len(node))
		for i, child := range node {
			s[i] = Scalar{V: child}
		}
		return s
	default:
		return Scalar{V: v}
	}
}

// FromRecords converts an entity collection of decoded JSON records into a
// MapSource.
func FromRecords(records map[string]map[string]any) MapSource {
	src := make(MapSource, len(records))
	for id, record := range records {
		src[id] = FromAny(record)
	}
	return src
}
