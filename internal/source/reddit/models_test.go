package reddit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplies_UnmarshalEmptyString(t *testing.T) {
	var thing Thing
	payload := `{"kind":"t1","data":{"name":"t1_abc","body":"hi","replies":""}}`

	require.NoError(t, json.Unmarshal([]byte(payload), &thing))

	assert.Nil(t, thing.Data.Replies.Listing)
	assert.Empty(t, thing.Data.Replies.Children())
}

func TestReplies_UnmarshalNested(t *testing.T) {
	var thing Thing
	payload := `{
		"kind": "t1",
		"data": {
			"name": "t1_parent",
			"body": "top",
			"replies": {
				"kind": "Listing",
				"data": {
					"children": [
						{"kind": "t1", "data": {"name": "t1_child", "body": "nested", "replies": ""}},
						{"kind": "more", "data": {}}
					]
				}
			}
		}
	}`

	require.NoError(t, json.Unmarshal([]byte(payload), &thing))

	children := thing.Data.Replies.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "t1_child", children[0].Data.Name)
	assert.Equal(t, KindMore, children[1].Kind)
}

func TestPostPermalink(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "comment permalink truncated to post",
			in:   "/r/jewelry/comments/abc123/my_ring_question/def456/",
			want: "/r/jewelry/comments/abc123/my_ring_question/",
		},
		{
			name: "post permalink unchanged",
			in:   "/r/jewelry/comments/abc123/my_ring_question/",
			want: "/r/jewelry/comments/abc123/my_ring_question/",
		},
		{
			name: "too short",
			in:   "/r/jewelry/comments/",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostPermalink(tt.in))
		})
	}
}
