// Package pipeline runs crawled images through an ordered chain of steps.
//
// A Pipeline pulls one item at a time from a Source, passes it through
// every Step and hands the survivors to an Exporter. Steps may drop an
// item by returning nil. Items are processed lazily: a FirstNStep that
// has seen enough items stops the pipeline from requesting more pages
// from the image board.
//
// DefaultPipeline assembles the fixed crawl chain: mode conversion,
// similarity filtering, resizing, tagging, a second similarity filter,
// truncation and random naming. BatchProcessor provides ordered,
// bounded concurrency for work such as downloading one page of images.
package pipeline
