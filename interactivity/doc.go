// Package interactivity applies server-side data-wp-* directives to
// rendered HTML.
//
// A Store holds per-namespace state and configuration. A Processor walks
// the tag stream of a document, tracks the namespace pushed by
// data-wp-interactive and the context pushed by data-wp-context, and
// applies the bind, class and style directives of each opening tag by
// evaluating expressions such as "myPlugin::state.isOpen" or
// "!context.expanded".
//
// Tags are edited lexically: attributes that no directive touches keep
// their exact bytes, and tags without effective directives are copied
// through unchanged. Invalid expressions never fail a render; they are
// skipped and reported through observe.DoingItWrong.
package interactivity
