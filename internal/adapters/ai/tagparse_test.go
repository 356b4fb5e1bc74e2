package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaxonomySuggestionStrictJSON(t *testing.T) {
	raw := `{
		"taxonomies": {
			"post_tag": ["go", "testing"],
			"category": ["engineering"]
		},
		"audience": ["developers"]
	}`

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"go", "testing"}, got.Taxonomies["post_tag"])
	assert.Equal(t, []string{"engineering"}, got.Taxonomies["category"])
	assert.Equal(t, []string{"developers"}, got.Audience)

	// Flat fields mirror the conventional taxonomy keys.
	assert.Equal(t, []string{"go", "testing"}, got.Tags)
	assert.Equal(t, []string{"engineering"}, got.Categories)
}

func TestParseTaxonomySuggestionEmbeddedJSON(t *testing.T) {
	raw := "Here are my suggestions:\n```json\n" +
		`{"taxonomies": {"post_tag": ["ai"], "category": ["news"]}, "audience": []}` +
		"\n```\nHope this helps!"

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"ai"}, got.Tags)
	assert.Equal(t, []string{"news"}, got.Categories)
	assert.Empty(t, got.Audience)
}

func TestParseTaxonomySuggestionSanitizesTerms(t *testing.T) {
	raw := `{"taxonomies": {"post_tag": ["  <b>go</b> ", "go", "", 42, true, {"x": 1}, "rust"]}}`

	got := ParseTaxonomySuggestion(raw)

	// Markup stripped, duplicates and empties dropped, non-scalars
	// skipped, order preserved.
	assert.Equal(t, []string{"go", "42", "rust"}, got.Tags)
}

func TestParseTaxonomySuggestionNonArrayTaxonomyIgnored(t *testing.T) {
	raw := `{"taxonomies": {"post_tag": "not-an-array", "category": ["ok"]}}`

	got := ParseTaxonomySuggestion(raw)

	_, hasTags := got.Taxonomies["post_tag"]
	assert.False(t, hasTags)
	assert.Equal(t, []string{"ok"}, got.Categories)
}

func TestParseTaxonomySuggestionMirrorDoesNotOverwrite(t *testing.T) {
	raw := `{"tags": ["explicit"], "taxonomies": {"post_tag": ["nested"]}}`

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"explicit"}, got.Tags)
	assert.Equal(t, []string{"nested"}, got.Taxonomies["post_tag"])
}

func TestParseTaxonomySuggestionLabeledLines(t *testing.T) {
	raw := "Sure! Here you go:\n" +
		"- Tags: go, concurrency, go\n" +
		"* Categories: engineering\n" +
		"Audience: developers, architects\n"

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"go", "concurrency"}, got.Tags)
	assert.Equal(t, []string{"engineering"}, got.Categories)
	assert.Equal(t, []string{"developers", "architects"}, got.Audience)
}

func TestParseTaxonomySuggestionHebrewLabels(t *testing.T) {
	raw := "תגיות: בינה מלאכותית, תוכנה\n" +
		"קטגוריות: חדשות\n" +
		"קהל יעד: מפתחים\n"

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"בינה מלאכותית", "תוכנה"}, got.Tags)
	assert.Equal(t, []string{"חדשות"}, got.Categories)
	assert.Equal(t, []string{"מפתחים"}, got.Audience)
}

func TestParseTaxonomySuggestionGenericTaxonomyLines(t *testing.T) {
	raw := "post_tag: alpha, beta\ncustom-tax: one, two\n"

	got := ParseTaxonomySuggestion(raw)

	assert.Equal(t, []string{"alpha", "beta"}, got.Taxonomies["post_tag"])
	assert.Equal(t, []string{"one", "two"}, got.Taxonomies["custom-tax"])
	// post_tag mirrors into the flat field when it is empty.
	assert.Equal(t, []string{"alpha", "beta"}, got.Tags)
}

func TestParseTaxonomySuggestionUnparseable(t *testing.T) {
	got := ParseTaxonomySuggestion("I could not find anything relevant, sorry.")

	require.NotNil(t, got)
	assert.Empty(t, got.Tags)
	assert.Empty(t, got.Categories)
	assert.Empty(t, got.Audience)
	assert.Empty(t, got.Taxonomies)
}

func TestParseTaxonomySuggestionEmptyInput(t *testing.T) {
	got := ParseTaxonomySuggestion("")

	require.NotNil(t, got)
	assert.NotNil(t, got.Tags)
	assert.NotNil(t, got.Taxonomies)
}
