package bot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/internal/catalog"
)

func TestDecodeCallback(t *testing.T) {
	cases := []struct {
		key, payload string
		want         Intent
		ok           bool
	}{
		{"books", "", Intent{Kind: ListBooks}, true},
		{"add", "", Intent{Kind: StartAdd}, true},
		{"recommend", "", Intent{Kind: Recommend}, true},
		{"cancel", "", Intent{Kind: Cancel}, true},
		{"get", "12", Intent{Kind: GetByID, ID: 12}, true},
		{"get", " 3 ", Intent{Kind: GetByID, ID: 3}, true},
		{"get", "abc", Intent{}, false},
		{"get", "-1", Intent{}, false},
		{"delete", "1", Intent{}, false},
	}
	for _, tc := range cases {
		got, ok := DecodeCallback(tc.key, tc.payload)
		require.Equal(t, tc.ok, ok, "%s::%s", tc.key, tc.payload)
		require.Equal(t, tc.want, got)
	}
}

func TestDecodeGet(t *testing.T) {
	in, err := DecodeGet(" 7 ")
	require.NoError(t, err)
	require.Equal(t, Intent{Kind: GetByID, ID: 7, Keyword: "7"}, in)

	in, err = DecodeGet("маленький принц")
	require.NoError(t, err)
	require.Equal(t, Intent{Kind: GetByKeyword, Keyword: "маленький принц"}, in)

	in, err = DecodeGet("0")
	require.NoError(t, err)
	require.Equal(t, GetByKeyword, in.Kind)

	_, err = DecodeGet("   ")
	require.ErrorIs(t, err, catalog.ErrInvalidInput)
}
