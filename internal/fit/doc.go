// Package fit resolves dynamic slot fit policies.
//
// Slots reserve fixed geometry. When new content would overflow, shrink
// lowers the font size by binary search and scaleDown applies a uniform
// scale of at most 1. Clip and ellipsis need no measurement and are left
// to styling.
//
// Boxes abstract over the layout engine. TextBox measures plain text with
// fixed glyph metrics so fits can be resolved without a browser.
package fit
