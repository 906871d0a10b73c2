// Package events decodes verified webhook payloads into typed events and
// provides narrow accessors over the untyped data object. Accessors treat
// absent or foreign-shaped substructure as "not found", never as an error.
package events
