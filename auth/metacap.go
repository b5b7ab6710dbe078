package auth

// PostInfo is what meta capability mapping needs to know about a post.
type PostInfo struct {
	ID     int64
	Author int64
	Type   string
	Status string
}

// Meta capabilities mapped by MapMetaCap.
const (
	CapEditPost    = "edit_post"
	CapDeletePost  = "delete_post"
	CapReadPost    = "read_post"
	CapPublishPost = "publish_post"
)

type postTypeCaps struct {
	edit, editOthers, editPublished, editPrivate         string
	delete, deleteOthers, deletePublished, deletePrivate string
	read, readPrivate, publish                           string
}

func capsFor(postType string) postTypeCaps {
	plural := "posts"
	if postType == "page" {
		plural = "pages"
	}
	return postTypeCaps{
		edit:            "edit_" + plural,
		editOthers:      "edit_others_" + plural,
		editPublished:   "edit_published_" + plural,
		editPrivate:     "edit_private_" + plural,
		delete:          "delete_" + plural,
		deleteOthers:    "delete_others_" + plural,
		deletePublished: "delete_published_" + plural,
		deletePrivate:   "delete_private_" + plural,
		read:            "read",
		readPrivate:     "read_private_" + plural,
		publish:         "publish_" + plural,
	}
}

// MapMetaCap maps a meta capability on a post to the primitive
// capabilities userID needs. Primitive capabilities map to themselves.
// A nil post for a post meta capability yields "do_not_allow".
func MapMetaCap(capability string, userID int64, post *PostInfo) []string {
	switch capability {
	case CapEditPost, CapDeletePost, CapReadPost, CapPublishPost:
	default:
		return []string{capability}
	}
	if post == nil {
		return []string{"do_not_allow"}
	}

	c := capsFor(post.Type)
	own := userID != 0 && post.Author == userID

	switch capability {
	case CapPublishPost:
		return []string{c.publish}

	case CapReadPost:
		if post.Status != "private" {
			return []string{c.read}
		}
		if own {
			return []string{c.read}
		}
		return []string{c.readPrivate}

	case CapEditPost:
		return ownershipCaps(post.Status, own, c.edit, c.editOthers, c.editPublished, c.editPrivate)

	default:
		return ownershipCaps(post.Status, own, c.delete, c.deleteOthers, c.deletePublished, c.deletePrivate)
	}
}

func ownershipCaps(status string, own bool, base, others, published, private string) []string {
	if status == "trash" {
		status = "draft"
	}
	if own {
		switch status {
		case "publish", "future":
			return []string{published}
		case "private":
			return []string{private}
		default:
			return []string{base}
		}
	}
	caps := []string{others}
	switch status {
	case "publish", "future":
		caps = append(caps, published)
	case "private":
		caps = append(caps, private)
	}
	return caps
}
