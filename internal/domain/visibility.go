package domain

// CanViewReply decides whether a reply is shown to the current viewer.
// Public replies are visible to everyone. Private replies are visible only to
// their own author and the letter author; anonymous viewers never see them.
// This is a rendering filter applied over the full fetched reply set, not a
// query-time restriction.
func CanViewReply(r Reply, viewer *Identity, letterAuthor Identity) bool {
	if !r.IsPrivate {
		return true
	}
	if viewer == nil {
		return false
	}
	return viewer.UID == r.Author.UID || viewer.UID == letterAuthor.UID
}

// FromLetterAuthor labels a reply written by the letter's own author,
// independent of the visibility check.
func FromLetterAuthor(r Reply, letterAuthor Identity) bool {
	return r.Author.UID == letterAuthor.UID
}

// VisibleReplies filters replies with CanViewReply, preserving order.
func VisibleReplies(replies []Reply, viewer *Identity, letterAuthor Identity) []Reply {
	visible := make([]Reply, 0, len(replies))
	for _, r := range replies {
		if CanViewReply(r, viewer, letterAuthor) {
			visible = append(visible, r)
		}
	}
	return visible
}
