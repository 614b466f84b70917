// Package config provides configuration structures and utilities for
// boorucrawl. It defines network, tagging and similarity options, the
// optional YAML configuration file, and the XDG locations used for the
// settings database, the word list and the log file.
package config
