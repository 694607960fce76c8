package router

import (
	"strings"

	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/storage/objectstore"
)

// Mismatch field names reported when an event fails the rule.
const (
	MismatchSource    = "source"
	MismatchType      = "type"
	MismatchBucket    = "bucket"
	MismatchKeyPrefix = "key_prefix"
)

// DefaultKeyPrefix is the object key prefix the default rule selects.
const DefaultKeyPrefix = "lobby/hero.json"

// Rule is the single routing predicate applied to every storage-change
// notification. All four fields must match: source and type exactly, bucket
// exactly, and the object key by prefix.
type Rule struct {
	Source    string `json:"source"`
	Type      string `json:"type"`
	Bucket    string `json:"bucket"`
	KeyPrefix string `json:"key_prefix"`
}

// DefaultRule returns the rule that selects hero document creations in the
// default bucket.
func DefaultRule() Rule {
	return Rule{
		Source:    message.SourceObjectStorage,
		Type:      message.TypeObjectCreated,
		Bucket:    objectstore.DefaultBucket,
		KeyPrefix: DefaultKeyPrefix,
	}
}

// Matches evaluates the rule against an event. On failure it reports the
// first field that did not match so drops can be attributed.
func (r Rule) Matches(ev message.RawEvent) (bool, string) {
	if ev.Source != r.Source {
		return false, MismatchSource
	}
	if ev.Type != r.Type {
		return false, MismatchType
	}
	if ev.Bucket != r.Bucket {
		return false, MismatchBucket
	}
	if !strings.HasPrefix(ev.Key, r.KeyPrefix) {
		return false, MismatchKeyPrefix
	}
	return true, ""
}
