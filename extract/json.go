package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pevans/jobhawk/keypath"
)

// DecodeJSON decodes a response body into a generic document. Numbers are
// kept as json.Number so ids render exactly as the source wrote them.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return doc, nil
}

// JSON extracts records from a decoded document. selector is the key path
// to the array of job objects; an empty selector means the document itself
// is that array. titleKey, idKey and urlKey are key paths inside each job
// object. Jobs whose title is missing or blank are skipped, and source
// order is kept.
func JSON(doc any, selector, titleKey, idKey, urlKey, urlPrefix string) []Record {
	list := doc
	if selector != "" {
		list = keypath.Resolve(doc, keypath.Split(selector), []any{})
	}

	items, ok := list.([]any)
	if !ok {
		return nil
	}

	titlePath := keypath.Split(titleKey)
	idPath := keypath.Split(idKey)
	urlPath := keypath.Split(urlKey)

	var records []Record
	for _, item := range items {
		title, ok := scalarString(keypath.Resolve(item, titlePath, nil))
		if !ok {
			continue
		}
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		jobID := strings.TrimSpace(valueString(keypath.Resolve(item, idPath, "")))
		url := urlPrefix + valueString(keypath.Resolve(item, urlPath, ""))

		records = append(records, Record{Title: title, JobID: jobID, URL: url})
	}

	return records
}

// scalarString renders strings, numbers, booleans and null. Objects and
// arrays are reported as not scalar.
func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// valueString renders any decoded value; objects and arrays come out as
// compact JSON.
func valueString(v any) string {
	if s, ok := scalarString(v); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
