package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "fenced with prose",
			text: "Sure, here it is:\n```json\n{\"a\": {\"b\": 2}}\n```\nDone.",
			want: `{"a": {"b": 2}}`,
			ok:   true,
		},
		{
			name: "braces inside string literals",
			text: `{"desc": "use } carefully", "x": "\"{\""}`,
			want: `{"desc": "use } carefully", "x": "\"{\""}`,
			ok:   true,
		},
		{
			name: "no object",
			text: "I could not find anything.",
			ok:   false,
		},
		{
			name: "unbalanced",
			text: `{"a": 1`,
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONObject(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseRecordResponse(t *testing.T) {
	rec, err := parseRecordResponse(`Here you go: {
		"name": "Staple Tee",
		"brand": "Los Angeles Apparel",
		"colors": ["Black", "black", "White"],
		"base_cost": 7.5,
		"color_images": {"Heather": "https://cdn.example.com/h.jpg"}
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Staple Tee", rec.Name)
	// Duplicate spellings collapse, map-only colors are appended.
	assert.Equal(t, []string{"Black", "White", "Heather"}, rec.Colors)
	require.NotNil(t, rec.BaseCost)
	assert.Equal(t, "7.5", rec.BaseCost.String())
	assert.Equal(t, "https://cdn.example.com/h.jpg", rec.ColorImages["Heather"])
}

func TestParseRecordResponseErrors(t *testing.T) {
	_, err := parseRecordResponse("no json here")
	assert.Error(t, err)

	_, err = parseRecordResponse(`{"colors": "not-a-list"}`)
	assert.Error(t, err)
}

func TestParseRecordResponseMapOrderIsStable(t *testing.T) {
	text := `{"color_images": {"Zinc": "z.jpg", "Amber": "a.jpg", "Moss": "m.jpg"}}`
	first, err := parseRecordResponse(text)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := parseRecordResponse(text)
		require.NoError(t, err)
		assert.Equal(t, first.Colors, again.Colors)
	}
	assert.Equal(t, []string{"Amber", "Moss", "Zinc"}, first.Colors)
}
