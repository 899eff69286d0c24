package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"unique set", &tele.Callback{Unique: "get", Data: "7"}, "get", "7"},
		{"telebot encoding", &tele.Callback{Data: "\fget|12"}, "get", "12"},
		{"telebot without payload", &tele.Callback{Data: "\fbooks"}, "books", ""},
		{"colon form", &tele.Callback{Data: "get::3"}, "get", "3"},
		{"plain", &tele.Callback{Data: "recommend"}, "recommend", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			require.Equal(t, tc.key, key)
			require.Equal(t, tc.payload, payload)
		})
	}
}

func TestData(t *testing.T) {
	require.Equal(t, "get::5", Data("get", "5"))
	require.Equal(t, "books", Data("books", ""))
}
