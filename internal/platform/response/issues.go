package response

import "sort"

// Issues partitions validation messages into three disjoint buckets.
//
// Root holds messages without a field path, Nested maps dot paths to their
// messages, and Other holds messages whose path cannot be written as a dot path.
type Issues struct {
	Root   []string            `json:"root,omitempty"`
	Nested map[string][]string `json:"nested,omitempty"`
	Other  []string            `json:"other,omitempty"`
}

// AddRoot appends a message that belongs to the whole value.
func (i *Issues) AddRoot(message string) {
	i.Root = append(i.Root, message)
}

// AddNested appends a message under a dot path. An empty path is a root message.
func (i *Issues) AddNested(path string, message string) {
	if path == "" {
		i.AddRoot(message)
		return
	}
	if i.Nested == nil {
		i.Nested = map[string][]string{}
	}
	i.Nested[path] = append(i.Nested[path], message)
}

// AddOther appends a message whose path has no dot-path form.
func (i *Issues) AddOther(message string) {
	i.Other = append(i.Other, message)
}

// Empty reports whether no bucket holds a message. A nil receiver is empty.
func (i *Issues) Empty() bool {
	return i == nil || i.Len() == 0
}

// Len returns the total number of messages across all buckets.
func (i *Issues) Len() int {
	if i == nil {
		return 0
	}
	n := len(i.Root) + len(i.Other)
	for _, messages := range i.Nested {
		n += len(messages)
	}
	return n
}

// Fields returns the nested field paths in sorted order.
func (i *Issues) Fields() []string {
	if i == nil || len(i.Nested) == 0 {
		return nil
	}
	fields := make([]string, 0, len(i.Nested))
	for field := range i.Nested {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Field returns the messages recorded for one nested path.
func (i *Issues) Field(path string) []string {
	if i == nil {
		return nil
	}
	return i.Nested[path]
}

// Clone returns a deep copy, or nil for a nil receiver.
func (i *Issues) Clone() *Issues {
	if i == nil {
		return nil
	}
	out := &Issues{
		Root:  append([]string(nil), i.Root...),
		Other: append([]string(nil), i.Other...),
	}
	if len(i.Nested) > 0 {
		out.Nested = make(map[string][]string, len(i.Nested))
		for key, messages := range i.Nested {
			out.Nested[key] = append([]string(nil), messages...)
		}
	}
	return out
}
