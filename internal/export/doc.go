// Package export writes the items that survive the crawl pipeline to disk.
package export
