// Package hooks provides typed extension points.
//
// A Filter is an ordered list of transforms that each receive and return
// the same value type. An Action is an ordered list of observers. Both run
// callbacks in ascending priority; callbacks sharing a priority run in the
// order they were added.
//
// Registry bundles the named extension points used by the render pipeline,
// the query layer and the store. It is an explicit value owned by the
// caller; there is no process-global hook table.
package hooks
