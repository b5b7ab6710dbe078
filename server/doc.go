// Package server exposes the block pipeline over HTTP.
//
// Routes:
//   - POST /v1/render: render block content to HTML
//   - POST /v1/parse: parse block content into its node tree
//   - GET /wp/v2/block-types[/{namespace}[/{name}]]: registered block types
//   - POST /wp/v2/block-renderer/{namespace}/{name}: render one dynamic
//     block (edit_posts)
//   - GET /wp/v2/posts, GET /wp/v2/posts/{id}: published posts with
//     rendered content
//   - POST /wp/v2/posts: create a post (publish_posts)
//   - /healthz, /readyz, /health, /health/{name}: health probes
//   - /metrics: Prometheus metrics, when a handler is supplied
//
// Every render runs in its own pipeline: a fresh interactivity store and
// directive processor over the shared block registry, bounded by a
// bulkhead and a timeout.
package server
