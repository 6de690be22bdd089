package reddit

import (
	"encoding/json"
	"strings"
)

// Thing kinds carried by the listing discriminator. Anything other
// than a comment or post (notably "more" stubs) is not a real record.
const (
	KindComment = "t1"
	KindPost    = "t3"
	KindMore    = "more"
)

// Listing is Reddit's generic paginated container.
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

type ListingData struct {
	Children []Thing `json:"children"`
	After    string  `json:"after"`
}

// Thing is one listing entry: a kind discriminator plus payload.
type Thing struct {
	Kind string    `json:"kind"`
	Data ThingData `json:"data"`
}

// ThingData is the union of post and comment payload fields.
type ThingData struct {
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	ParentID   string  `json:"parent_id"`
	Score      int     `json:"score"`
	LinkID     string  `json:"link_id"`
	LinkTitle  string  `json:"link_title"`
	Replies    Replies `json:"replies"`
}

// Replies tolerates Reddit's encoding quirk: a comment with no replies
// carries the empty string instead of a listing object.
type Replies struct {
	Listing *Listing
}

func (r *Replies) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || b[0] == '"' || string(b) == "null" {
		return nil
	}

	var l Listing
	if err := json.Unmarshal(b, &l); err != nil {
		return err
	}
	r.Listing = &l
	return nil
}

// Children returns the nested reply things, or nil when there are none.
func (r Replies) Children() []Thing {
	if r.Listing == nil {
		return nil
	}
	return r.Listing.Data.Children
}

// PostPermalink truncates a comment permalink to its post-level prefix:
// /r/sub/comments/POST_ID/slug/COMMENT_ID/ -> /r/sub/comments/POST_ID/slug/.
// Returns "" when the path is too short to identify a post.
func PostPermalink(commentPermalink string) string {
	parts := strings.Split(strings.Trim(commentPermalink, "/"), "/")
	if len(parts) < 5 {
		return ""
	}
	return "/" + strings.Join(parts[:5], "/") + "/"
}
