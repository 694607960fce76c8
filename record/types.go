// Package record defines the hero document schema: the loosely-typed inbound
// shape accepted by the gateway and the strictly-typed projection written to
// the document store, plus the validation and coercion between the two.
package record

// InboundDocument is the loosely-typed JSON shape posted to the gateway.
// Every scalar rides in as string-typed text; numeric and boolean fields are
// re-interpreted during mapping.
type InboundDocument struct {
	Name            string              `json:"name"`
	CreationDate    string              `json:"creation_date"`
	Level           string              `json:"level"`
	Abilities       map[string]string   `json:"abilities"`
	Inventory       []string            `json:"inventory"`
	ServicesVisited []string            `json:"services_visited"`
	Events          []map[string]string `json:"events"`
}

// Abilities is the typed ability block of a stored record
type Abilities struct {
	Security   float64 `json:"security"`
	Elasticity float64 `json:"elasticity"`
	Durability float64 `json:"durability"`
	Versioning bool    `json:"versioning"`
	Filtered   bool    `json:"filtered"`
}

// StoredRecord is the strictly-typed projection persisted in the document
// store. Name is the sole identity; an upsert with an existing name replaces
// the entire item.
type StoredRecord struct {
	Name            string              `json:"name"`
	CreationDate    string              `json:"creation_date"`
	Level           float64             `json:"level"`
	Abilities       Abilities           `json:"abilities"`
	Inventory       []string            `json:"inventory"`
	ServicesVisited []string            `json:"services_visited"`
	Events          []map[string]string `json:"events"`
}
