// Package block parses and serializes block-delimited content.
//
// Stored content is HTML interleaved with comment delimiters of the form
//
//	<!-- wp:namespace/name {"attr":"value"} -->inner<!-- /wp:namespace/name -->
//	<!-- wp:name /-->
//
// Parse turns such content into a tree of Nodes and never fails: anything
// that is not a well-formed delimiter is kept as literal HTML. Serialize
// reverses the process so that canonical content round-trips byte for byte.
package block
