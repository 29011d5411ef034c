package record

// Record is the unit of storage of the ledger. It is always replaced as a
// whole, there are no partial updates.
type Record struct {
	Value string `json:"value" cbor:"value" msgpack:"value"`
}

// New returns a new record holding value.
func New(value string) *Record {
	return &Record{
		Value: value,
	}
}
