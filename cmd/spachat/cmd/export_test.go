package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragondesignz/spachat/chatlog"
	"github.com/paragondesignz/spachat/storage/memory"
)

func TestExportChats(t *testing.T) {
	chats := chatlog.NewStore(memory.NewStore())
	ctx := t.Context()

	_, err := chats.AppendMessages(ctx, "s1", "Mere", []chatlog.MessageInput{
		{Role: chatlog.RoleUser, Content: "hi"},
		{Role: chatlog.RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)
	_, err = chats.Upsert(ctx, "s2", "Sam")
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := exportChats(ctx, chats, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var doc struct {
		Chats []*chatlog.Log `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Chats, 2)
}

func TestExportChatsEmpty(t *testing.T) {
	chats := chatlog.NewStore(memory.NewStore())

	var buf bytes.Buffer
	count, err := exportChats(t.Context(), chats, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Contains(t, buf.String(), `"chats"`)
}
