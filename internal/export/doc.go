// Package export writes rendered documents as HTML, Markdown or PDF.
//
// HTML comes straight from the markup package. Markdown converts that page
// with html-to-markdown. PDF goes through a Typesetter, an external
// collaborator; RodTypesetter prints with headless Chromium. Every PDF is
// validated with pdfcpu before it is returned.
//
// Collaborator failures surface as *Error values tagged with a code.
package export
