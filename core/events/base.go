package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Sequence() uint64
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	sequence  uint64
	timestamp time.Time
}

func NewBase(kind Kind, sequence uint64) Base {
	return Base{kind: kind, sequence: sequence, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Sequence() uint64 {
	return b.sequence
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
