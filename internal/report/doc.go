// Package report renders the crawl run history.
//
// Writers implement the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: a Markdown document with tables and a chart of
//     the items each pipeline step removed
//   - JSONWriter: the records as JSON for other tools
package report
