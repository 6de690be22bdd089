package domain

import "errors"

// ErrUnknownPost is returned when a comment insert references a post
// that has never been inserted. Discovery always persists the post
// before crawling its tree, so hitting this indicates an ordering bug
// in the caller; it is fatal to the item, not the run.
var ErrUnknownPost = errors.New("comment references unknown post")
