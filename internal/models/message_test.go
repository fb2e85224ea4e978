package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationKeySymmetric(t *testing.T) {
	assert.Equal(t, ConversationKey("alice", "bob"), ConversationKey("bob", "alice"))
	assert.Equal(t, "alice:bob", ConversationKey("bob", "alice"))
}

func TestConversationKeyDeterministic(t *testing.T) {
	first := ConversationKey("u-7f3a", "u-02bc")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ConversationKey("u-7f3a", "u-02bc"))
		assert.Equal(t, first, ConversationKey("u-02bc", "u-7f3a"))
	}
}

func TestConversationKeySelf(t *testing.T) {
	assert.Equal(t, "a1:a1", ConversationKey("a1", "a1"))
}
