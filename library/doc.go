// Package library registers the built-in core blocks.
//
// The static blocks (paragraph, heading, group) only declare their
// attributes and supports; their saved markup renders verbatim. The
// dynamic blocks render on the server: core/latest-posts runs a cached
// post query and core/disclosure emits interactivity directives that the
// renderer's processor resolves against the state it seeds.
//
// Block metadata is embedded as block.json files and registered through
// blocktype.Registry.RegisterFromMetadata.
package library
