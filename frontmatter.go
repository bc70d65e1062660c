package frontyaml

import "strings"

// FrontMatter locates the pieces of a file whose header is fenced by '---'
// markers, the layout used by prompt and agent files: an opening '---' line,
// YAML until a closing '---' or '...' line, then a free-form body.
type FrontMatter struct {
	Header       string // Text between the opening and closing marker lines.
	HeaderOffset int    // Byte offset of Header within the source.
	Body         string // Everything after the closing marker line.
	BodyOffset   int    // Byte offset of Body within the source.
}

// SplitFrontMatter extracts the front-matter block from src. It returns
// false when src does not start with a '---' line or when no closing marker
// line follows. Marker lines may carry trailing whitespace but nothing else.
func SplitFrontMatter(src string) (FrontMatter, bool) {
	end := lineEnd(src, 0)
	if strings.TrimRight(src[:end], " \t\r") != "---" {
		return FrontMatter{}, false
	}

	headerStart := nextLineStart(src, end)
	for i := headerStart; i < len(src); {
		le := lineEnd(src, i)
		switch strings.TrimRight(src[i:le], " \t\r") {
		case "---", "...":
			bodyStart := nextLineStart(src, le)
			return FrontMatter{
				Header:       src[headerStart:i],
				HeaderOffset: headerStart,
				Body:         src[bodyStart:],
				BodyOffset:   bodyStart,
			}, true
		}
		i = nextLineStart(src, le)
	}
	return FrontMatter{}, false
}

// ParseFrontMatter extracts and parses the front-matter header of src. Node
// spans and diagnostic offsets are shifted so they point into src itself
// rather than into the extracted header, which lets editors underline the
// exact file range. The body after the closing marker is returned verbatim.
//
// A file without front matter yields a nil node and the whole source as the
// body, with no diagnostics.
func ParseFrontMatter(src string, errs *[]ParseError, opts ParseOptions) (Node, string) {
	fm, ok := SplitFrontMatter(src)
	if !ok {
		return nil, src
	}

	var local []ParseError
	root := Parse(fm.Header, &local, opts)
	if errs != nil {
		for _, e := range local {
			e.Start += fm.HeaderOffset
			e.End += fm.HeaderOffset
			*errs = append(*errs, e)
		}
	}
	return shiftNode(root, fm.HeaderOffset), fm.Body
}

// shiftNode returns a copy of the tree with every span moved by delta. The
// input tree is left untouched.
func shiftNode(n Node, delta int) Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *ScalarNode:
		out := *v
		out.Start += delta
		out.End += delta
		return &out
	case *SequenceNode:
		out := &SequenceNode{
			Items: make([]Node, len(v.Items)),
			Style: v.Style,
			Start: v.Start + delta,
			End:   v.End + delta,
		}
		for i, item := range v.Items {
			out.Items[i] = shiftNode(item, delta)
		}
		return out
	case *MapNode:
		out := &MapNode{
			Properties: make([]MapProperty, len(v.Properties)),
			Style:      v.Style,
			Start:      v.Start + delta,
			End:        v.End + delta,
		}
		for i, prop := range v.Properties {
			key := *prop.Key
			key.Start += delta
			key.End += delta
			out.Properties[i] = MapProperty{Key: &key, Value: shiftNode(prop.Value, delta)}
		}
		return out
	default:
		return n
	}
}

// lineEnd returns the offset of the '\n' closing the line that starts at i,
// or len(src) for the last line.
func lineEnd(src string, i int) int {
	if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(src)
}

// nextLineStart returns the offset just past the line break at le.
func nextLineStart(src string, le int) int {
	if le < len(src) {
		return le + 1
	}
	return len(src)
}
