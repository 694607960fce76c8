package ingest

import (
	"encoding/json"
	"time"

	"github.com/darko-mesaros/adventures-of-json/errors"
)

// Markers appended to a document as it moves through the pipeline.
const (
	visitWorker = "worker"
	visitQueue  = "queue"

	recursionEventKey = "objectStoreRecursion"
)

// Annotate records the pipeline's passage on a document copy. When the
// document carries a services_visited array the worker and queue markers are
// appended; when it carries an events array a recursion marker with the
// current date is appended. The stored original is never modified, only the
// enqueued copy carries the markers.
//
// Documents without those arrays pass through untouched. Non-object JSON is
// rejected.
func Annotate(doc []byte, now time.Time) ([]byte, error) {
	var obj map[string]any
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, errors.WrapInvalid(err, "ingest", "Annotate", "document is not a JSON object")
	}

	if visited, ok := obj["services_visited"].([]any); ok {
		obj["services_visited"] = append(visited, visitWorker, visitQueue)
	}

	if events, ok := obj["events"].([]any); ok {
		marker := map[string]any{recursionEventKey: now.Format("2006-01-02")}
		obj["events"] = append(events, marker)
	}

	annotated, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.WrapInvalid(err, "ingest", "Annotate", "marshal annotated document")
	}
	return annotated, nil
}
