package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{
		{Text: "1", Unique: "get", Data: "1"},
		{Text: "2", Unique: "get", Data: "2"},
		{Text: "3", Unique: "get", Data: "3"},
	}
	markup := InlineButtonsNPerRow(btns, 2)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Len(t, markup.InlineKeyboard[1], 1)
	require.Equal(t, "get", markup.InlineKeyboard[0][0].Unique)
	require.Equal(t, "1", markup.InlineKeyboard[0][0].Data)
}

func TestSingleCancelMarkup(t *testing.T) {
	markup := SingleCancelMarkup("cancel")
	require.Len(t, markup.InlineKeyboard, 1)
	require.Equal(t, defaultCancelButtonText, markup.InlineKeyboard[0][0].Text)
	require.Equal(t, "cancel", markup.InlineKeyboard[0][0].Unique)

	custom := SingleCancelMarkup("cancel", "Стоп")
	require.Equal(t, "Стоп", custom.InlineKeyboard[0][0].Text)
}
