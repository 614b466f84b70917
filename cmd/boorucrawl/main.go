// Package main provides the entry point for the boorucrawl CLI.
//
// boorucrawl collects images from Danbooru or Gelbooru, filters and
// normalizes them, and writes a textual inversion training set.
//
// Usage:
//
//	boorucrawl
//	boorucrawl history
//	boorucrawl init
//
// See --help for all available options.
package main

func main() {
	Execute()
}
