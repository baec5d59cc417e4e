// Package keypath looks up values inside decoded JSON documents by an
// ordered list of object keys.
package keypath

import "strings"

// Split turns a comma-separated key path such as "data,jobs" into its
// segments. Segments are used verbatim; an empty path is the single empty
// key.
func Split(path string) []string {
	return strings.Split(path, ",")
}

// Resolve walks doc one key at a time. Each step must land on a JSON object
// (map[string]any) that contains the key; as soon as one does not, def is
// returned. Arrays are never indexed.
func Resolve(doc any, path []string, def any) any {
	cur := doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		next, ok := obj[key]
		if !ok {
			return def
		}
		cur = next
	}
	return cur
}
