package rtdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Entry is one child of a collection, in the order the database sent it.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// DecodeEntries decodes a JSON object into its key/value pairs preserving
// document order. A null or empty body is an empty collection.
func DecodeEntries(body []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode collection: expected JSON object, got %v", tok)
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode collection key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode collection: unexpected key %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode collection value %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return entries, nil
}

// pushResult is the body the database returns for a POST.
type pushResult struct {
	Name string `json:"name"`
}

// DecodePushResult returns the key the database generated for a POST.
func DecodePushResult(body []byte) (string, error) {
	var res pushResult
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode push result: %w", err)
	}
	if res.Name == "" {
		return "", errors.New("decode push result: missing name")
	}
	return res.Name, nil
}
