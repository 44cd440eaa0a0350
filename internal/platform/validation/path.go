package validation

import (
	"regexp"
	"strings"
)

var keySegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// dotPath converts a validator namespace such as "Input.items[0].name" into
// "items.0.name", dropping the leading root struct name when root is set.
// ok is false when a bracketed key cannot be written as a dot path segment.
func dotPath(namespace string, root string) (path string, ok bool) {
	if root != "" {
		if rest, found := strings.CutPrefix(namespace, root); found {
			namespace = rest
		} else if cut := strings.IndexAny(namespace, ".["); cut >= 0 {
			namespace = namespace[cut:]
		} else {
			namespace = ""
		}
		namespace = strings.TrimPrefix(namespace, ".")
	}

	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}
	for i := 0; i < len(namespace); i++ {
		switch c := namespace[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(namespace[i:], ']')
			if end < 0 {
				return "", false
			}
			key := namespace[i+1 : i+end]
			if !keySegment.MatchString(key) {
				return "", false
			}
			segments = append(segments, key)
			i += end
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return strings.Join(segments, "."), true
}
