// Package booru queries image boards and downloads the images of matching
// posts.
//
// Danbooru is read through /posts.json and Gelbooru through the dapi
// listing with json=1. Both are exposed as a Source whose Next method
// satisfies pipeline.Source. Results are paged lazily, files other than
// still images are skipped, and byte-identical files are yielded once.
package booru
