package chain

import (
	"fmt"
	"strings"
)

// segment is one step of a node path. A plain segment ("module") addresses
// a nested object; a collection segment ("rule[js]") addresses the named
// entry js inside the rule collection.
type segment struct {
	key        string
	collection string
}

func (s segment) String() string {
	if s.collection == "" {
		return s.key
	}
	return s.collection + "[" + s.key + "]"
}

// parsePath splits a dot/bracket path such as module.rule[js].use[swc].
// Names inside brackets may contain dots.
func parsePath(path string) ([]segment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	var segs []segment
	var cur strings.Builder
	i := 0
	for i < len(path) {
		ch := path[i]
		switch ch {
		case '.':
			if cur.Len() == 0 {
				return nil, fmt.Errorf("invalid chain path %q: empty segment at offset %d", path, i)
			}
			segs = append(segs, segment{key: cur.String()})
			cur.Reset()
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("invalid chain path %q: unterminated '['", path)
			}
			name := path[i+1 : i+end]
			if cur.Len() == 0 || name == "" {
				return nil, fmt.Errorf("invalid chain path %q: collection entry needs a collection and a name", path)
			}
			segs = append(segs, segment{key: name, collection: cur.String()})
			cur.Reset()
			i += end + 1
			if i < len(path) {
				if path[i] != '.' {
					return nil, fmt.Errorf("invalid chain path %q: expected '.' after ']'", path)
				}
				i++
				if i == len(path) {
					return nil, fmt.Errorf("invalid chain path %q: trailing '.'", path)
				}
			}
		case ']':
			return nil, fmt.Errorf("invalid chain path %q: unexpected ']'", path)
		default:
			cur.WriteByte(ch)
			i++
		}
	}
	if cur.Len() > 0 {
		segs = append(segs, segment{key: cur.String()})
	} else if len(path) > 0 && path[len(path)-1] == '.' {
		return nil, fmt.Errorf("invalid chain path %q: trailing '.'", path)
	}
	return segs, nil
}

func joinPath(parent string, s segment) string {
	if parent == "" {
		return s.String()
	}
	return parent + "." + s.String()
}
