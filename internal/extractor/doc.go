// Package extractor converts PDF documents into normalized plain text.
//
// Each page's text is cleaned with CleanText and prefixed with a
// "--- Page N ---" marker so that chunks can be traced back to pages. Pages
// whose content stream cannot be decoded are logged and skipped; only a file
// that cannot be opened at all fails the extraction.
package extractor
