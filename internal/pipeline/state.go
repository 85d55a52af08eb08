package pipeline

import "fmt"

type State int

const (
	StateIdle State = iota
	StateDecoded
	StateStandardReady
	StateQuantumReady
	StateModeBranch
	StateComposited
	StateSigned
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:          "Idle",
	StateDecoded:       "Decoded",
	StateStandardReady: "StandardReady",
	StateQuantumReady:  "QuantumReady",
	StateModeBranch:    "ModeBranch",
	StateComposited:    "Composited",
	StateSigned:        "Signed",
	StateDone:          "Done",
	StateFailed:        "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Event int

const (
	EventDecoded Event = iota
	EventStandardDone
	EventQuantumDone
	EventBranch
	EventComposited
	EventSigned
	EventFinish
	EventFail
)

// transitions lists the legal moves; EventFail is accepted from every
// non-terminal state and handled separately.
var transitions = map[State]map[Event]State{
	StateIdle:          {EventDecoded: StateDecoded},
	StateDecoded:       {EventStandardDone: StateStandardReady},
	StateStandardReady: {EventQuantumDone: StateQuantumReady},
	StateQuantumReady:  {EventBranch: StateModeBranch},
	StateModeBranch:    {EventComposited: StateComposited},
	StateComposited:    {EventSigned: StateSigned},
	StateSigned:        {EventFinish: StateDone},
}

// machine records the states a single run passes through.
type machine struct {
	current State
	trace   []State
}

func newMachine(initial State) *machine {
	return &machine{current: initial, trace: []State{initial}}
}

func (m *machine) terminal() bool {
	return m.current == StateDone || m.current == StateFailed
}

func (m *machine) send(evt Event) error {
	if m.terminal() {
		return fmt.Errorf("run already in terminal state %s", m.current)
	}

	next := StateFailed
	if evt != EventFail {
		target, ok := transitions[m.current][evt]
		if !ok {
			return fmt.Errorf("no transition from %s on event %d", m.current, evt)
		}
		next = target
	}

	m.current = next
	m.trace = append(m.trace, next)
	return nil
}

func (m *machine) Trace() []State {
	out := make([]State, len(m.trace))
	copy(out, m.trace)
	return out
}
