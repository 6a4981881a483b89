package notification_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

func TestRecipients_UnmarshalJSON(t *testing.T) {
	type testCase struct {
		name    string
		input   string
		want    notification.Recipients
		wantErr bool
	}

	tests := []testCase{
		{name: "String", input: `{"to":"a@example.com"}`, want: notification.Recipients{"a@example.com"}},
		{name: "Array", input: `{"to":["a@example.com","b@example.com"]}`, want: notification.Recipients{"a@example.com", "b@example.com"}},
		{name: "Empty string", input: `{"to":""}`, want: nil},
		{name: "Null", input: `{"to":null}`, want: nil},
		{name: "Number", input: `{"to":42}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg notification.Message

			err := json.Unmarshal([]byte(tt.input), &msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.To)
		})
	}
}
