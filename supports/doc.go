// Package supports computes the wrapper classes and inline styles that a
// block's declared supports flags contribute to its rendered markup.
//
// Each feature is gated by its own flag under the block type's supports
// object and reads only the block's attributes. Features run in a fixed
// order: generated class name, align, color, typography, spacing, custom
// class name. WrapperAttributes merges the result with caller-supplied
// attributes into a single HTML attribute string; the block's content is
// never touched.
package supports
