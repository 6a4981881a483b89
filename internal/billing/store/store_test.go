package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSubscriptionQuery(t *testing.T) {
	assert.Contains(t, upsertSubscriptionQuery, "ON CONFLICT (stripe_id) DO UPDATE")
	assert.NotContains(t, upsertSubscriptionQuery, "id = EXCLUDED.id")
}

func TestApplyCheckoutQuery_KeepsUserLink(t *testing.T) {
	assert.Contains(t, applyCheckoutQuery, "user_id = COALESCE(NULLIF($2, '')::uuid, user_id)")
}

func TestEncodeMetadata(t *testing.T) {
	got, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = encodeMetadata(map[string]string{"userId": "u-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u-1"}`, got)
}
