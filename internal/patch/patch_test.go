package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLiteralFirstOccurrence(t *testing.T) {
	res, err := Apply("foo bar foo", Block{Search: "foo", Replace: "baz"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "baz bar foo", res.Content)
	assert.Equal(t, 1, res.Occurrences)
	assert.Equal(t, []int{0}, res.Positions)
}

func TestApplyLiteralReplaceAll(t *testing.T) {
	res, err := Apply("foo bar foo", Block{Search: "foo", Replace: "baz"}, Options{ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, "baz bar baz", res.Content)
	assert.Equal(t, 2, res.Occurrences)
	assert.Equal(t, []int{0, 8}, res.Positions)
}

func TestApplyLiteralReplacementContainsSearch(t *testing.T) {
	res, err := Apply("aaa", Block{Search: "a", Replace: "aa"}, Options{ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, "aaaaaa", res.Content)
	assert.Equal(t, 3, res.Occurrences)
}

func TestApplyLiteralDollarIsNotSpecial(t *testing.T) {
	res, err := Apply("price", Block{Search: "price", Replace: "$1"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "$1", res.Content)
}

func TestApplyNoMatch(t *testing.T) {
	_, err := Apply("hello", Block{Search: "world", Replace: "x"}, Options{})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = Apply("hello", Block{Search: "w.rld", Replace: "x"}, Options{UseRegex: true})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestApplyEmptySearch(t *testing.T) {
	_, err := Apply("hello", Block{Search: "", Replace: "x"}, Options{})
	assert.ErrorIs(t, err, ErrEmptySearch)
}

func TestApplyCaseInsensitiveLiteral(t *testing.T) {
	res, err := Apply("Hello HELLO hello", Block{Search: "hello", Replace: "hi"}, Options{CaseInsensitive: true, ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, "hi hi hi", res.Content)
	assert.Equal(t, []int{0, 6, 12}, res.Positions)
}

func TestApplyCaseInsensitiveEscapesMetacharacters(t *testing.T) {
	res, err := Apply("call A.B() then a.b()", Block{Search: "a.b()", Replace: "x"}, Options{CaseInsensitive: true, ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, "call x then x", res.Content)
}

func TestApplyRegexWithGroups(t *testing.T) {
	res, err := Apply("const a = 1;\nconst b = 2;", Block{Search: `const (\w+)`, Replace: "let $1"}, Options{UseRegex: true, ReplaceAll: true})
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\nlet b = 2;", res.Content)
	assert.Equal(t, 2, res.Occurrences)
	assert.Equal(t, []int{0, 13}, res.Positions)
}

func TestApplyRegexFirstOnly(t *testing.T) {
	res, err := Apply("x1 x2 x3", Block{Search: `x\d`, Replace: "y"}, Options{UseRegex: true})
	require.NoError(t, err)
	assert.Equal(t, "y x2 x3", res.Content)
	assert.Equal(t, 1, res.Occurrences)
}

func TestApplyRegexPositionsAreBytes(t *testing.T) {
	res, err := Apply("héllo wörld", Block{Search: `w\w+`, Replace: "x"}, Options{UseRegex: true})
	require.NoError(t, err)
	assert.Equal(t, "héllo x", res.Content)
	assert.Equal(t, []int{7}, res.Positions)
}

func TestApplyInvalidRegex(t *testing.T) {
	_, err := Apply("abc", Block{Search: "(unclosed", Replace: ""}, Options{UseRegex: true})
	require.Error(t, err)
	var perr *PatternError
	assert.True(t, errors.As(err, &perr))
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestApplyAllIsAtomic(t *testing.T) {
	content := "alpha\nbeta\ngamma"
	res, err := ApplyAll(content, []Block{
		{Search: "alpha", Replace: "ALPHA"},
		{Search: "gamma", Replace: "GAMMA"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ALPHA\nbeta\nGAMMA", res.Content)
	assert.Equal(t, 2, res.Occurrences)
	assert.Equal(t, []int{0, 11}, res.Positions)

	res, err = ApplyAll("a b", []Block{
		{Search: "a", Replace: "xyz"},
		{Search: "b", Replace: "B"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "xyz B", res.Content)
	assert.Equal(t, []int{0, 4}, res.Positions, "second block reports offsets into the first block's output")

	_, err = ApplyAll(content, []Block{
		{Search: "alpha", Replace: "ALPHA"},
		{Search: "delta", Replace: "DELTA"},
	}, Options{})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestParseBlocks(t *testing.T) {
	diff := "intro text\n" +
		"<<<<<<< SEARCH\n" +
		"func a() {\n" +
		"\treturn 1\n" +
		"}\n" +
		"=======\n" +
		"func a() {\n" +
		"\treturn 2\n" +
		"}\n" +
		">>>>>>> REPLACE\n" +
		"<<<<<<< SEARCH\n" +
		"// remove me\n" +
		"=======\n" +
		">>>>>>> REPLACE\n"

	blocks, err := ParseBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "func a() {\n\treturn 1\n}", blocks[0].Search)
	assert.Equal(t, "func a() {\n\treturn 2\n}", blocks[0].Replace)
	assert.Equal(t, "// remove me", blocks[1].Search)
	assert.Equal(t, "", blocks[1].Replace)
}

func TestParseBlocksMalformed(t *testing.T) {
	cases := map[string]string{
		"unterminated":  "<<<<<<< SEARCH\nfoo\n=======\nbar\n",
		"missing split": "<<<<<<< SEARCH\nfoo\n>>>>>>> REPLACE\n",
		"empty search":  "<<<<<<< SEARCH\n=======\nbar\n>>>>>>> REPLACE\n",
		"no blocks":     "just prose",
	}
	for name, diff := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBlocks(diff)
			assert.ErrorIs(t, err, ErrMalformedBlock)
		})
	}
}
