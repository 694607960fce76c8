package record

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/darko-mesaros/adventures-of-json/errors"
)

// Fixed projection widths of the stored schema. Inbound lists longer than
// these are truncated explicitly; shorter lists are rejected by Validate.
const (
	inventoryLen = 1
	servicesLen  = 2
	eventsLen    = 2
)

// Map converts a loosely-typed inbound document into its typed projection.
// The mapping is deterministic: identical input bytes always produce an
// identical record, which keeps redelivered queue messages idempotent.
//
// Map performs its own coercion checks so it is safe to call without
// Validate, but the schema check produces friendlier field-level messages.
func Map(data []byte) (*StoredRecord, error) {
	var doc InboundDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "Record", "Map", "decode document")
	}

	if doc.Name == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("name is required"), "Record", "Map", "check identity")
	}

	level, err := number("level", doc.Level)
	if err != nil {
		return nil, err
	}

	abilities, err := mapAbilities(doc.Abilities)
	if err != nil {
		return nil, err
	}

	inventory, err := textList("inventory", doc.Inventory, inventoryLen)
	if err != nil {
		return nil, err
	}

	services, err := textList("services_visited", doc.ServicesVisited, servicesLen)
	if err != nil {
		return nil, err
	}

	events, err := eventList(doc.Events)
	if err != nil {
		return nil, err
	}

	return &StoredRecord{
		Name:            doc.Name,
		CreationDate:    doc.CreationDate,
		Level:           level,
		Abilities:       abilities,
		Inventory:       inventory,
		ServicesVisited: services,
		Events:          events,
	}, nil
}

func mapAbilities(src map[string]string) (Abilities, error) {
	var abilities Abilities

	if src == nil {
		return abilities, errors.WrapInvalid(
			fmt.Errorf("abilities is required"), "Record", "Map", "check abilities")
	}

	var err error
	if abilities.Security, err = number("abilities.security", src["security"]); err != nil {
		return abilities, err
	}
	if abilities.Elasticity, err = number("abilities.elasticity", src["elasticity"]); err != nil {
		return abilities, err
	}
	if abilities.Durability, err = number("abilities.durability", src["durability"]); err != nil {
		return abilities, err
	}
	if abilities.Versioning, err = boolean("abilities.versioning", src["versioning"]); err != nil {
		return abilities, err
	}
	if abilities.Filtered, err = boolean("abilities.filtered", src["filtered"]); err != nil {
		return abilities, err
	}

	return abilities, nil
}

// number re-interprets numeric text as a number
func number(field, value string) (float64, error) {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%s: %q is not numeric", field, value),
			"Record", "Map", "coerce number")
	}
	return n, nil
}

// boolean re-interprets a boolean literal; only "true" and "false" are accepted
func boolean(field, value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errors.WrapInvalid(
			fmt.Errorf("%s: %q is not a boolean literal", field, value),
			"Record", "Map", "coerce boolean")
	}
}

// textList takes exactly want elements from the front of the list,
// truncating extras and rejecting shortfalls.
func textList(field string, src []string, want int) ([]string, error) {
	if len(src) < want {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%s: need at least %d elements, got %d", field, want, len(src)),
			"Record", "Map", "check list length")
	}

	out := make([]string, want)
	copy(out, src[:want])
	return out, nil
}

func eventList(src []map[string]string) ([]map[string]string, error) {
	if len(src) < eventsLen {
		return nil, errors.WrapInvalid(
			fmt.Errorf("events: need at least %d elements, got %d", eventsLen, len(src)),
			"Record", "Map", "check list length")
	}

	out := make([]map[string]string, eventsLen)
	for i := 0; i < eventsLen; i++ {
		if len(src[i]) != 1 {
			return nil, errors.WrapInvalid(
				fmt.Errorf("events[%d]: expected a single-key map, got %d keys", i, len(src[i])),
				"Record", "Map", "check event shape")
		}
		entry := make(map[string]string, 1)
		for k, v := range src[i] {
			entry[k] = v
		}
		out[i] = entry
	}
	return out, nil
}
