// Package tagging infers descriptive tags for crawled images.
//
// MetadataTagger derives tags from the categories an image board published
// with the post and needs no network access. HTTPTagger sends the image to
// an inference service and keeps the tags scoring above a threshold.
// Both satisfy pipeline.Tagger.
package tagging
