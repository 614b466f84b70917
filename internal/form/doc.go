// Package form implements the crawl settings form.
//
// Controller holds the field values, persists them through a
// SettingsStore, validates them and hands a snapshot to the runner. Model
// is the bubbletea front end that renders the Controller's fields, the
// search term completion popup, the directory picker and the dialogs.
package form
