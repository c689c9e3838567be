package vectorstore

// Record is one embedding with its retrieval metadata. Index is the
// message's position in the filtered participant sequence; it is what lets
// a query-time consumer reconstruct conversational order.
type Record struct {
	ID        string
	Vector    []float32
	Timestamp string
	Sender    string
	Index     int
	Content   string
}
