// Package responder serves the rendered document page and the stylesheet.
//
// Routes, matched on the request path with surrounding slashes removed:
//
//	*pygments.css      the configured stylesheet file as text/css, or 404
//	*.md (any case)    the document rendered into the page template; 404
//	                   unless the name equals the document's base name
//	                   (case-insensitive) and the file exists
//	anything else      404
//
// Only GET and HEAD are served; other methods get 404. Every request is
// logged with the client address, path and status. The document is read and
// rendered fresh on every request; nothing cached by the watcher is used.
//
// The page embeds a small script that connects to the live-update hub on
// the configured port of the page's own host and replaces the content region
// with every message it receives.
package responder
