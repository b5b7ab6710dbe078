// Package render turns parsed block trees into HTML.
//
// A Renderer looks each node up in a blocktype.Registry, prepares its
// attributes, renders inner blocks into the placeholders of the node's
// inner content, and calls the block type's render callback. Filters in
// Hooks may short-circuit a block, rewrite the parsed node before
// rendering or replace the output afterwards. When an interactivity
// processor is configured, directives are applied once to the final
// document.
//
// Rendering never fails because of a block: a callback error is reported
// as a developer notice and the block renders empty. Only context
// cancellation aborts a render.
package render
