package frontyaml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustMap(t *testing.T, n Node) *MapNode {
	t.Helper()
	m, ok := n.(*MapNode)
	if !ok {
		t.Fatalf("expected mapping node, got %T", n)
	}
	return m
}

func mustSeq(t *testing.T, n Node) *SequenceNode {
	t.Helper()
	s, ok := n.(*SequenceNode)
	if !ok {
		t.Fatalf("expected sequence node, got %T", n)
	}
	return s
}

func mustScalar(t *testing.T, n Node) *ScalarNode {
	t.Helper()
	s, ok := n.(*ScalarNode)
	if !ok {
		t.Fatalf("expected scalar node, got %T", n)
	}
	return s
}

// errorCodes returns the code of every diagnostic in order.
func errorCodes(errs []ParseError) []ErrorCode {
	var out []ErrorCode
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestParseEmptyInputs(t *testing.T) {
	f := func(name, input string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			var errs []ParseError
			assert.Nil(t, Parse(input, &errs, ParseOptions{}))
			assert.Empty(t, errs)
		})
	}

	f("empty", "")
	f("spaces", "   ")
	f("blank_lines", "\n\n\n")
	f("comment_only", "# just a comment\n")
	f("indented_comment", "  # note")
	f("document_start_only", "---\n")
	f("document_end_only", "...")
	f("markers_only", "---\n...\n")
	f("marker_then_comment", "---\n# nothing here\n")
}

func TestParseScalarRoots(t *testing.T) {
	f := func(name, input, want string, format ScalarFormat) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			var errs []ParseError
			sc := mustScalar(t, Parse(input, &errs, ParseOptions{}))
			assert.Equal(t, want, sc.Value)
			assert.Equal(t, format, sc.Format)
			assert.Empty(t, errs)
		})
	}

	f("plain", "hello world\n", "hello world", FormatNone)
	f("single_quoted", "'hi'\n", "hi", FormatSingle)
	f("double_quoted", `"a\nb"`, "a\nb", FormatDouble)
	f("literal_block", "|\n x\n y\n", "x\ny\n", FormatLiteral)
	f("folded_block", ">\n x\n y\n", "x y\n", FormatFolded)
	f("after_document_start", "---\nhello\n", "hello", FormatNone)

	// Plain scalars fold across deeper continuation lines.
	f("multiline_fold", "one\n two\n", "one two", FormatNone)
	f("multiline_blank", "one\n\n two\n", "one\ntwo", FormatNone)
	f("multiline_two_blanks", "one\n\n\n two\n", "one\n\ntwo", FormatNone)
}

func TestParseBlockMapping(t *testing.T) {
	t.Run("nested_indentation", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a:\n  b: 1\n  c: 2\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, StyleBlock, root.Style)
		assert.Len(t, root.Properties, 1)
		assert.Equal(t, "a", root.Properties[0].Key.Value)

		inner := mustMap(t, root.Properties[0].Value)
		assert.Equal(t, StyleBlock, inner.Style)
		assert.Len(t, inner.Properties, 2)
		assert.Equal(t, "b", inner.Properties[0].Key.Value)
		assert.Equal(t, "1", mustScalar(t, inner.Properties[0].Value).Value)
		assert.Equal(t, "c", inner.Properties[1].Key.Value)
		assert.Equal(t, "2", mustScalar(t, inner.Properties[1].Value).Value)
	})

	t.Run("sequence_at_same_indent", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a:\n- 1\n- 2\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)

		seq := mustSeq(t, root.Properties[0].Value)
		assert.Len(t, seq.Items, 2)
		assert.Equal(t, "1", mustScalar(t, seq.Items[0]).Value)
		assert.Equal(t, "2", mustScalar(t, seq.Items[1]).Value)
	})

	t.Run("value_on_next_line", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a:\n  deep value\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "deep value", mustScalar(t, root.Properties[0].Value).Value)
	})

	t.Run("second_colon_is_content", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("time: 10:30\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "time", root.Properties[0].Key.Value)
		assert.Equal(t, "10:30", mustScalar(t, root.Properties[0].Value).Value)
	})

	t.Run("interleaved_comments", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1 # one\n# between\nb: 2\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Len(t, root.Properties, 2)
		assert.Equal(t, "b", root.Properties[1].Key.Value)
	})

	t.Run("missing_value", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a:\n", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrMissingValue}, errorCodes(errs))
		sc := mustScalar(t, root.Properties[0].Value)
		assert.Equal(t, "", sc.Value)
		assert.Equal(t, sc.Start, sc.End)
	})

	t.Run("missing_colon", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1\nb\nc: 3\n", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrExpectedColon}, errorCodes(errs))
		assert.Len(t, root.Properties, 3)
		assert.Equal(t, "", mustScalar(t, root.Properties[1].Value).Value)
		assert.Equal(t, "3", mustScalar(t, root.Properties[2].Value).Value)
	})

	t.Run("unexpected_indentation_stops_block", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1\n  b: 2\n", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrUnexpectedIndentation}, errorCodes(errs))
		assert.Len(t, root.Properties, 1)
	})

	t.Run("multiline_plain_value", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: one\n  two\n\n  three\nb: 2\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "one two\nthree", mustScalar(t, root.Properties[0].Value).Value)
		assert.Equal(t, "2", mustScalar(t, root.Properties[1].Value).Value)
	})

	t.Run("dash_folds_as_prose", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: steps are\n  - first\n  - second\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "steps are - first - second", mustScalar(t, root.Properties[0].Value).Value)
	})

	t.Run("block_scalar_values", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: |\n  line1\n  line2\n\n\nb: 1\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		sc := mustScalar(t, root.Properties[0].Value)
		assert.Equal(t, "line1\nline2\n", sc.Value)
		assert.Equal(t, FormatLiteral, sc.Format)
		assert.Equal(t, "1", mustScalar(t, root.Properties[1].Value).Value)
	})
}

func TestParseDuplicateKeys(t *testing.T) {
	t.Run("reported_by_default", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1\na: 2\n", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrDuplicateKey}, errorCodes(errs))

		// Both entries stay in the tree; the later one wins on lookup.
		assert.Len(t, root.Properties, 2)
		assert.Equal(t, "a", root.Properties[0].Key.Value)
		assert.Equal(t, "a", root.Properties[1].Key.Value)
		assert.Equal(t, "2", mustScalar(t, root.Get("a")).Value)
	})

	t.Run("allowed_by_option", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1\na: 2\n", &errs, ParseOptions{AllowDuplicateKeys: true}))
		assert.Empty(t, errs)
		assert.Len(t, root.Properties, 2)
	})

	t.Run("reported_in_flow", func(t *testing.T) {
		var errs []ParseError
		Parse("{a: 1, a: 2}", &errs, ParseOptions{})
		assert.Equal(t, []ErrorCode{ErrDuplicateKey}, errorCodes(errs))
	})
}

func TestParseBlockSequence(t *testing.T) {
	t.Run("items", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("- a\n- b\n- c\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, StyleBlock, seq.Style)
		assert.Len(t, seq.Items, 3)
		assert.Equal(t, "b", mustScalar(t, seq.Items[1]).Value)
	})

	t.Run("nested_same_line", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("- - x\n  - y\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Len(t, seq.Items, 1)

		inner := mustSeq(t, seq.Items[0])
		assert.Len(t, inner.Items, 2)
		assert.Equal(t, "x", mustScalar(t, inner.Items[0]).Value)
		assert.Equal(t, "y", mustScalar(t, inner.Items[1]).Value)
	})

	t.Run("inline_mapping_item", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("- k: v\n  j: w\n- other\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Len(t, seq.Items, 2)

		m := mustMap(t, seq.Items[0])
		assert.Len(t, m.Properties, 2)
		assert.Equal(t, "v", mustScalar(t, m.Properties[0].Value).Value)
		assert.Equal(t, "w", mustScalar(t, m.Properties[1].Value).Value)
		assert.Equal(t, "other", mustScalar(t, seq.Items[1]).Value)
	})

	t.Run("value_on_next_line", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("-\n  x\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "x", mustScalar(t, seq.Items[0]).Value)
	})

	t.Run("bare_dash", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("- a\n-\n", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrMissingValue}, errorCodes(errs))
		assert.Len(t, seq.Items, 2)
		assert.Equal(t, "", mustScalar(t, seq.Items[1]).Value)
	})

	t.Run("nested_under_key", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("tools:\n  - read\n  - write\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		seq := mustSeq(t, root.Properties[0].Value)
		assert.Len(t, seq.Items, 2)
	})
}

func TestParseFlowCollections(t *testing.T) {
	t.Run("flow_mapping", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("{a: 1, b: 2}", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, StyleFlow, m.Style)
		assert.Len(t, m.Properties, 2)
		assert.Equal(t, "2", mustScalar(t, m.Get("b")).Value)
	})

	t.Run("flow_sequence", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("[1, 2, 3]", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, StyleFlow, seq.Style)
		assert.Len(t, seq.Items, 3)
	})

	t.Run("nested_flow", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("{a: [1, {b: 2}]}", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		seq := mustSeq(t, m.Get("a"))
		assert.Len(t, seq.Items, 2)
		inner := mustMap(t, seq.Items[1])
		assert.Equal(t, "2", mustScalar(t, inner.Get("b")).Value)
	})

	t.Run("key_shorthand", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("a: {b: 1, c}", &errs, ParseOptions{}))
		assert.Empty(t, errs)

		flow := mustMap(t, m.Properties[0].Value)
		assert.Len(t, flow.Properties, 2)
		assert.Equal(t, "c", flow.Properties[1].Key.Value)
		assert.Equal(t, "", mustScalar(t, flow.Properties[1].Value).Value)
	})

	t.Run("missing_value_after_colon", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("{a: , b: 1}", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrMissingValue}, errorCodes(errs))
		assert.Equal(t, "", mustScalar(t, m.Properties[0].Value).Value)
		assert.Equal(t, "1", mustScalar(t, m.Get("b")).Value)
	})

	t.Run("unterminated_mapping", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("{a: 1", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrExpectedFlowMapEnd}, errorCodes(errs))
		assert.Equal(t, "1", mustScalar(t, m.Get("a")).Value)
	})

	t.Run("unterminated_sequence", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("[1, 2", &errs, ParseOptions{}))
		assert.Equal(t, []ErrorCode{ErrExpectedFlowSeqEnd}, errorCodes(errs))
		assert.Len(t, seq.Items, 2)
	})

	t.Run("bad_flow_key", func(t *testing.T) {
		var errs []ParseError
		Parse("{]}", &errs, ParseOptions{})
		assert.Contains(t, errorCodes(errs), ErrExpectedMappingKey)
	})

	t.Run("multiline_flow", func(t *testing.T) {
		var errs []ParseError
		seq := mustSeq(t, Parse("[\n  1,\n  2\n]\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Len(t, seq.Items, 2)
	})

	t.Run("plain_scalar_folds_in_flow", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse("{k: one\n two}", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Equal(t, "one two", mustScalar(t, m.Get("k")).Value)
	})

	t.Run("flow_on_next_line", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a:\n  {x: 1}\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		flow := mustMap(t, root.Properties[0].Value)
		assert.Equal(t, StyleFlow, flow.Style)
	})

	t.Run("json_compact", func(t *testing.T) {
		var errs []ParseError
		m := mustMap(t, Parse(`{"a":{"b":[1,2]}}`, &errs, ParseOptions{}))
		assert.Empty(t, errs)
		inner := mustMap(t, m.Get("a"))
		seq := mustSeq(t, inner.Get("b"))
		assert.Len(t, seq.Items, 2)
	})
}

func TestParseDocumentMarkers(t *testing.T) {
	t.Run("leading_and_trailing", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("---\na: 1\n...\n", &errs, ParseOptions{}))
		assert.Empty(t, errs)
		assert.Len(t, root.Properties, 1)
	})

	t.Run("marker_ends_mapping", func(t *testing.T) {
		var errs []ParseError
		root := mustMap(t, Parse("a: 1\n...\nb: 2\n", &errs, ParseOptions{}))
		assert.Len(t, root.Properties, 1)
	})
}

func TestParseUnexpectedTrailingToken(t *testing.T) {
	var errs []ParseError
	root := mustMap(t, Parse("a: 'x' junk\nb: 2\n", &errs, ParseOptions{}))
	assert.Equal(t, []ErrorCode{ErrUnexpectedToken}, errorCodes(errs))
	assert.Len(t, root.Properties, 2)
}

func TestParseQuotedValueFormats(t *testing.T) {
	var errs []ParseError
	root := mustMap(t, Parse("a: \"true\"\nb: true\n", &errs, ParseOptions{}))
	assert.Empty(t, errs)
	assert.Equal(t, FormatDouble, mustScalar(t, root.Get("a")).Format)
	assert.Equal(t, FormatNone, mustScalar(t, root.Get("b")).Format)
}

func TestParseSpans(t *testing.T) {
	t.Run("simple_pair", func(t *testing.T) {
		input := "a: 1"
		var errs []ParseError
		root := mustMap(t, Parse(input, &errs, ParseOptions{}))
		assert.Equal(t, 0, root.Start)
		assert.Equal(t, 4, root.End)
		key := root.Properties[0].Key
		assert.Equal(t, "a", input[key.Start:key.End])
		val := mustScalar(t, root.Properties[0].Value)
		assert.Equal(t, "1", input[val.Start:val.End])
	})

	t.Run("nested_mapping", func(t *testing.T) {
		input := "a:\n  b: 1\n  c: 2\n"
		var errs []ParseError
		root := mustMap(t, Parse(input, &errs, ParseOptions{}))
		assert.Equal(t, 0, root.Start)
		assert.Equal(t, 16, root.End)

		inner := mustMap(t, root.Properties[0].Value)
		assert.Equal(t, 5, inner.Start)
		assert.Equal(t, 16, inner.End)
	})

	t.Run("flow_mapping", func(t *testing.T) {
		input := "a: {b: 1, c}"
		var errs []ParseError
		root := mustMap(t, Parse(input, &errs, ParseOptions{}))
		flow := mustMap(t, root.Properties[0].Value)
		assert.Equal(t, "{", input[flow.Start:flow.Start+1])
		assert.Equal(t, len(input), flow.End)
	})

	t.Run("containment", func(t *testing.T) {
		docs := []string{
			"a:\n  b: 1\n  c: 2\n",
			"a:\n- 1\n- 2\n",
			"- - x\n- {k: v}\n",
			"a: {b: [1, 2], c}\n",
			"a: |\n  text\nb: 'q'\n",
			"a: one\n  two\n",
		}
		for _, input := range docs {
			var errs []ParseError
			root := Parse(input, &errs, ParseOptions{})
			checkNodeInvariants(t, input, root)
		}
	})
}

// TestParseRawRoundTrip verifies that a scalar's Raw text is exactly its
// input slice. Plain scalars folded across lines carry joined segments and
// are exempt.
func TestParseRawRoundTrip(t *testing.T) {
	docs := []string{
		"a: 'single'\nb: \"dou\\tble\"\n",
		"a: |\n  l1\n  l2\nb: >\n  f1\n  f2\n",
		"plain: value\n",
		"seq:\n- 'one'\n- two\n",
	}
	for _, input := range docs {
		var errs []ParseError
		root := Parse(input, &errs, ParseOptions{})
		assert.Empty(t, errs, "input %q", input)
		walkScalars(root, func(sc *ScalarNode) {
			if sc.Format == FormatNone && strings.Contains(sc.Raw, "\n") {
				return
			}
			assert.Equal(t, input[sc.Start:sc.End], sc.Raw, "input %q", input)
		})
	}
}

// walkScalars calls fn for every scalar in the tree, keys included.
func walkScalars(n Node, fn func(*ScalarNode)) {
	switch v := n.(type) {
	case *ScalarNode:
		fn(v)
	case *SequenceNode:
		for _, item := range v.Items {
			walkScalars(item, fn)
		}
	case *MapNode:
		for _, p := range v.Properties {
			fn(p.Key)
			walkScalars(p.Value, fn)
		}
	}
}
