// Package render converts Markdown documents to HTML.
//
// Renderer is the contract the rest of livemark depends on: text in, markup
// out. Markdown is the production implementation, backed by goldmark with
// GitHub-flavoured extensions and chroma syntax highlighting for fenced code
// blocks. Highlighting uses inline styles so rendered fragments need no
// stylesheet; WriteStylesheet emits the class-based equivalent for users who
// prefer to serve pygments.css themselves.
package render
