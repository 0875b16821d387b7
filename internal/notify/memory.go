package notify

import "sync"

// Sent captures one Notify call for assertions.
type Sent struct {
	UserID  uint
	Kind    string
	Title   string
	Message string
	Meta    map[string]any
}

// MemNotifier records notifications in memory for tests.
type MemNotifier struct {
	mu   sync.Mutex
	sent []Sent
}

func NewMemNotifier() *MemNotifier { return &MemNotifier{} }

func (n *MemNotifier) Notify(userID uint, kind, title, message string, meta map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Sent{UserID: userID, Kind: kind, Title: title, Message: message, Meta: meta})
}

// All returns a copy of everything sent so far.
func (n *MemNotifier) All() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Sent, len(n.sent))
	copy(out, n.sent)
	return out
}

// ByKind filters sent notifications by kind.
func (n *MemNotifier) ByKind(kind string) []Sent {
	var out []Sent
	for _, s := range n.All() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
