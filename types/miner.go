package types

// MinerAddress is one entry of the miner reward pool (CouchDB database miner_addresses).
// Membership and activity are maintained outside of the dispatch pipeline.
type MinerAddress struct {
	BaseDocument `json:",inline"`
	Address      string `json:"address" validate:"required"`
	Rank         int    `json:"rank"`
	IsActive     bool   `json:"isActive"`
	Modified     int64  `json:"modified,omitempty"`
}

// MinerSelection is the outcome of picking a reward target. A nil Miner means
// the pool had no active entries.
type MinerSelection struct {
	Miner *MinerAddress
}

func (m MinerSelection) Available() bool {
	return m.Miner != nil
}
