// Package attr provides the JSON value model used for block attributes.
//
// Values are a tagged variant (null, bool, number, string, array, object).
// Objects keep insertion order so that attributes parsed from a block
// delimiter serialize back in the order they were written, and numbers keep
// their literal text for the same reason.
package attr
