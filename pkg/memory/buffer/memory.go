package buffer

// Memories is a simple in-actor conversation buffer. Each entry pairs a user
// message with the reply it produced.
type Memories struct {
	Items []Memory `json:"memories"`
}

type Memory struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (m *Memories) Add(m2 Memory) {
	m.Items = append(m.Items, m2)
}

// Window returns the most recent n entries, oldest first. Used to bound how
// much history is replayed into the model context.
func (m *Memories) Window(n int) []Memory {
	if n <= 0 || n >= len(m.Items) {
		return m.Items
	}
	return m.Items[len(m.Items)-n:]
}
