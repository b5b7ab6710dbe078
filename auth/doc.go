// Package auth authenticates requests and answers capability checks.
//
// Identities come from JWT bearer tokens or application passwords sent
// with HTTP Basic auth. Capability checks follow the role model of the
// content store: roles grant primitive capabilities such as edit_posts,
// and meta capabilities such as edit_post are mapped onto primitive ones
// from the post's author and status before the roles are consulted.
package auth
