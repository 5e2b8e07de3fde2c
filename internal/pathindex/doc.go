// Package pathindex builds the property path index for Home Assistant
// entity records.
//
// An entity record is a schema-free tree (see Value). The index is the set
// of dotted paths reaching every leaf, deduplicated and ordered so that
// top-level properties come before nested ones:
//
//	src := pathindex.FromRecords(states)
//	paths := pathindex.Compute(src, pathindex.Options{
//	    EntityID: "light.kitchen",
//	    Term:     "bright",
//	})
//	// ["attributes.brightness"]
//
// Everything in this package is pure and synchronous. The index is
// recomputed on every call and never cached.
package pathindex
