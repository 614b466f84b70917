// Package autocomplete loads the search term word list and completes the
// last word of a multi-word query against it.
//
// The word list is a CSV file whose first column holds one candidate per
// row, such as the tag exports published for Danbooru. A missing or
// partially malformed file never fails the caller: problems are logged and
// whatever could be read is used.
package autocomplete
