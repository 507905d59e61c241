package types

type OK struct {
	IsOK bool   `json:"ok"`
	ID   string `json:"id,omitempty"`
	Rev  string `json:"rev,omitempty"`
}

type CouchDBError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Document represents a single document returned by Get
type BaseDocument struct {
	// Rev is the revision number returned
	Rev     string `json:"_rev,omitempty"`
	ID      string `json:"_id,omitempty"`
	Deleted bool   `json:"_deleted,omitempty"`
}

// Index is a MonboDB-style index definition.
type Index struct {
	DesignDoc  string      `json:"ddoc,omitempty"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Definition interface{} `json:"def"`
}
