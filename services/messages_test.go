package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndReadMessages(t *testing.T) {
	f := newFixture(t)
	svc := NewMessageService(f.db, f.pub, f.log)
	ctx := context.Background()

	for _, body := range []string{"hi", "rally tomorrow?", "  "} {
		_, err := svc.Send(ctx, "alice", "bob", body)
		if strings.TrimSpace(body) == "" {
			assert.ErrorIs(t, err, ErrInvalidInput)
			continue
		}
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, "bob", "alice", "sure, 6pm")
	require.NoError(t, err)

	_, err = svc.Send(ctx, "alice", "alice", "me")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Send(ctx, "alice", "bob", strings.Repeat("a", maxMessageBody+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	convo, err := svc.Conversation(ctx, "bob", "alice", time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, convo, 3)

	unread, err := svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	inserts := f.pub.forTable(messagesTable)
	require.Len(t, inserts, 3)
	assert.True(t, inserts[0].Matches(messagesTable, map[string]string{"recipient_id": "bob"}))
	assert.False(t, inserts[0].Matches(messagesTable, map[string]string{"recipient_id": "alice"}))

	var msg models.Message
	for _, m := range convo {
		if m.RecipientID == "bob" {
			msg = m
			break
		}
	}
	_, err = svc.MarkRead(ctx, msg.ID, "alice")
	assert.ErrorIs(t, err, ErrForbidden)
	read, err := svc.MarkRead(ctx, msg.ID, "bob")
	require.NoError(t, err)
	assert.NotNil(t, read.ReadAt)

	unread, err = svc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	_, err = svc.MarkRead(ctx, "missing", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}
