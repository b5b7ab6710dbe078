// Package styles manipulates inline CSS declaration lists.
//
// Declarations keep their order; setting a property that already exists
// moves it to the end. String renders the compact "prop:value;" form used
// in block wrapper style attributes.
package styles
