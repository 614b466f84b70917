// Package model defines the data structures shared by the form, the crawl
// runner and the pipeline.
//
// This package contains the following main types:
//   - Source: the image board a crawl is run against
//   - CrawlParameters: the immutable snapshot handed to one crawl run
//   - Settings: the key-value view of the last-used form values
//   - Item: one image travelling through the pipeline
//   - RunRecord: the persisted summary of a finished run
package model
