package patch

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestResolvesPayloadFiles(t *testing.T) {
	t.Parallel()

	manifest := []byte(`{
  "steps": [
    {"name": "remove", "summary": "drop block", "kind": "pattern", "match": "a.*?b", "multiline": true, "replace": ""},
    {"name": "insert", "kind": "literal", "match": "ANCHOR", "replace_file": "payload.txt", "append": "ANCHOR", "cardinality": "first", "guard": true, "report_order": 2, "notes": ["threshold is 3"]}
  ]
}`)
	payloads := fstest.MapFS{"payload.txt": &fstest.MapFile{Data: []byte("inserted\n")}}

	steps, err := ParseManifest(manifest, payloads)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, Step{Name: "remove", Summary: "drop block", Kind: MatchPattern, Match: "a.*?b", Multiline: true, Cardinality: CardinalityAll}, steps[0])
	assert.Equal(t, "inserted\nANCHOR", steps[1].Replace)
	assert.Equal(t, CardinalityFirst, steps[1].Cardinality)
	assert.True(t, steps[1].Guard)
	assert.Equal(t, []string{"threshold is 3"}, steps[1].Notes)
	assert.Equal(t, 2, steps[1].ReportOrder)
}

func TestParseManifestRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":         `{`,
		"no steps":         `{"steps": []}`,
		"unknown kind":     `{"steps":[{"name":"s","kind":"glob","match":"x"}]}`,
		"missing match":    `{"steps":[{"name":"s","kind":"literal"}]}`,
		"unknown field":    `{"steps":[{"name":"s","kind":"literal","match":"x","extra":1}]}`,
		"both replacement": `{"steps":[{"name":"s","kind":"literal","match":"x","replace":"y","replace_file":"f"}]}`,
		"duplicate names":  `{"steps":[{"name":"s","kind":"literal","match":"x"},{"name":"s","kind":"literal","match":"y"}]}`,
		"missing payload":  `{"steps":[{"name":"s","kind":"literal","match":"x","replace_file":"absent.txt"}]}`,
		"zero order":       `{"steps":[{"name":"s","kind":"literal","match":"x","report_order":0}]}`,
	}

	for name, doc := range cases {
		name, doc := name, doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseManifest([]byte(doc), fstest.MapFS{})
			var pe *Error
			require.True(t, errors.As(err, &pe), "expected *Error, got %v", err)
			assert.Equal(t, CodeInvalidManifest, pe.Code)
		})
	}
}

func TestParseManifestWithoutPayloadFS(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest([]byte(`{"steps":[{"name":"s","kind":"literal","match":"x","replace_file":"p.txt"}]}`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payloads were provided")
}
