// Package markup renders render IR as HTML using golang.org/x/net/html.
//
// Every IR node becomes an element tagged with data-flux-id and
// data-flux-kind. Slots render as an outer element carrying the fit policy,
// refresh policy and reserved size, wrapping a data-flux-slot-inner
// container. Patches replace only the children of that container, so the
// reserved geometry never changes while content does.
package markup
