package objectstore

// DefaultBucket is the object store bucket documents land in.
const DefaultBucket = "the-spicy-platypus-tiki-bar"

// DefaultEventsSubject is where storage-change notifications are published.
const DefaultEventsSubject = "storage.objectstore.events"

// Config holds configuration for the ObjectStore backend.
type Config struct {
	// BucketName is the NATS JetStream ObjectStore bucket name
	BucketName string `json:"bucket_name"`

	// EventsSubject is the NATS subject storage-change notifications are
	// published on after every successful Put. Empty disables publishing.
	EventsSubject string `json:"events_subject"`
}

// DefaultConfig returns the default ObjectStore configuration.
func DefaultConfig() Config {
	return Config{
		BucketName:    DefaultBucket,
		EventsSubject: DefaultEventsSubject,
	}
}
