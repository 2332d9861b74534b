package feed

import "strings"

// Entity is one listing record. Only ID and TokenAddress drive reveal detection.
type Entity struct {
	ID           int     `json:"id"`
	TokenAddress *string `json:"tokenAddress"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Status       string  `json:"status"`
}

// Mint returns the trimmed token address, or "" when absent.
func (e Entity) Mint() string {
	if e.TokenAddress == nil {
		return ""
	}
	return strings.TrimSpace(*e.TokenAddress)
}

// Listing is the second element of the feed payload.
type Listing struct {
	Data  []Entity `json:"data"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
}

// Snapshot is one poll's worth of feed state. It is never mutated after Fetch returns.
type Snapshot struct {
	Status   map[string]any
	Entities []Entity
	Total    int
}

// Entity looks up the first record with the given id.
func (s *Snapshot) Entity(id int) (Entity, bool) {
	if s == nil {
		return Entity{}, false
	}
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}
