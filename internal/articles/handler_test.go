package articles

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/platform/httpx"
	"github.com/pressroom-cms/pressroom/internal/store"
)

func TestUnmarshalBodyPlainEnvelope(t *testing.T) {
	var input CreateInput
	require.NoError(t, unmarshalBody([]byte(`{"data":{"title":"Hello","author":1}}`), &input))
	require.Equal(t, "Hello", input.Title)
	require.Equal(t, int64(1), *input.Author.ID)
}

func TestUnmarshalBodyStringEncoded(t *testing.T) {
	// The whole body is a JSON string holding the envelope; it is
	// unwrapped once and parsed again.
	var input CreateInput
	require.NoError(t, unmarshalBody([]byte(`"{\"data\":{\"title\":\"Hello\"}}"`), &input))
	require.Equal(t, "Hello", input.Title)
}

func TestUnmarshalBodyRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"whitespace":       `   `,
		"missing data key": `{"title":"Hello"}`,
		"null data":        `{"data":null}`,
		"broken json":      `{"data":{`,
		"non-json string":  `"not json at all"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var input CreateInput
			require.ErrorIs(t, unmarshalBody([]byte(body), &input), httpx.ErrValidation)
		})
	}
}

func TestUnmarshalFormDataBareObject(t *testing.T) {
	// The multipart "data" field carries the input without the
	// {"data": ...} envelope.
	var input CreateInput
	require.NoError(t, unmarshalFormData([]byte(`{"title":"with image","author":[5]}`), &input))
	require.Equal(t, "with image", input.Title)
	require.Equal(t, int64(5), *input.Author.ID)
}

func TestUnmarshalFormDataAcceptsEnvelope(t *testing.T) {
	var input CreateInput
	require.NoError(t, unmarshalFormData([]byte(`{"data":{"title":"wrapped"}}`), &input))
	require.Equal(t, "wrapped", input.Title)
}

func TestUnmarshalFormDataStringEncoded(t *testing.T) {
	var input CreateInput
	require.NoError(t, unmarshalFormData([]byte(`"{\"title\":\"stringly\"}"`), &input))
	require.Equal(t, "stringly", input.Title)
}

func TestUnmarshalFormDataRejectsBadPayloads(t *testing.T) {
	for name, body := range map[string]string{
		"empty":       ``,
		"whitespace":  `   `,
		"broken json": `{"title":`,
		"not object":  `[1,2]`,
	} {
		t.Run(name, func(t *testing.T) {
			var input CreateInput
			require.ErrorIs(t, unmarshalFormData([]byte(body), &input), httpx.ErrValidation)
		})
	}
}

func TestParseFiltersWhitelistsFields(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/articles?filters[title]=hello&filters[author]=9&filters[password]=x&other=1", nil)

	filter := parseFilters(r)
	require.Equal(t, store.Filter{"title": "hello", "author": int64(9)}, filter)
}

func TestParseFiltersEmptyIsNil(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/articles", nil)
	require.Nil(t, parseFilters(r))

	r = httptest.NewRequest("GET", "/api/articles?filters[unknown]=x", nil)
	require.Nil(t, parseFilters(r))
}

func TestWantsPopulate(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/articles?populate=%2A", nil)
	require.True(t, wantsPopulate(r))

	r = httptest.NewRequest("GET", "/api/articles", nil)
	require.False(t, wantsPopulate(r))
}
