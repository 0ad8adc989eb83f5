package timeline

import "fmt"

// Kind tags the journey phase at an instant.
type Kind int

const (
	Pre Kind = iota
	Checkpoint
	Launch
	Stop
	Travel
	Complete
)

func (k Kind) String() string {
	switch k {
	case Pre:
		return "pre"
	case Checkpoint:
		return "checkpoint"
	case Launch:
		return "launch"
	case Stop:
		return "stop"
	case Travel:
		return "travel"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Phase is recomputed from scratch on every tick. Index is set for
// Checkpoint, Launch and Stop; From and To for Travel; otherwise they are -1.
type Phase struct {
	Kind  Kind
	Index int
	From  int
	To    int
}

func pre() Phase                { return Phase{Kind: Pre, Index: -1, From: -1, To: -1} }
func complete() Phase           { return Phase{Kind: Complete, Index: -1, From: -1, To: -1} }
func at(k Kind, i int) Phase    { return Phase{Kind: k, Index: i, From: -1, To: -1} }
func travel(from, to int) Phase { return Phase{Kind: Travel, Index: -1, From: from, To: to} }

func (p Phase) String() string {
	switch p.Kind {
	case Checkpoint, Launch, Stop:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Index)
	case Travel:
		return fmt.Sprintf("%s(%d,%d)", p.Kind, p.From, p.To)
	}
	return p.Kind.String()
}
