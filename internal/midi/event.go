// Package midi normalizes controller input into canonical events and wraps
// the gomidi driver used to receive it.
package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MessageType is the kind of a canonical controller event.
type MessageType int

const (
	ControlChange MessageType = iota
	NoteOn
	NoteOff
	PitchBend
	ProgramChange
)

var typeNames = [...]string{
	ControlChange: "ControlChange",
	NoteOn:        "NoteOn",
	NoteOff:       "NoteOff",
	PitchBend:     "PitchBend",
	ProgramChange: "ProgramChange",
}

func (t MessageType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
	return typeNames[t]
}

// ParseMessageType accepts a type name in any case, spaces ignored:
// "note on", "NoteOn" and "NOTEON" are equivalent.
func ParseMessageType(s string) (MessageType, bool) {
	name := strings.ReplaceAll(s, " ", "")
	for i, n := range typeNames {
		if strings.EqualFold(n, name) {
			return MessageType(i), true
		}
	}
	return 0, false
}

// NA marks an event field that does not apply to the message type.
const NA = -1

// Event is the canonical form of one controller message. Channel is 1-based.
type Event struct {
	Type    MessageType
	Channel int
	Value1  int
	Value2  int
}

func (e Event) String() string {
	return fmt.Sprintf("%-14s channel:%d value1:%d value2:%d", e.Type, e.Channel, e.Value1, e.Value2)
}

// Classify converts a raw message. Messages of other kinds are reported
// with ok == false.
//
//	ControlChange  value1 = controller, value2 = value
//	NoteOn/Off     value1 = key,        value2 = velocity
//	PitchBend      value1 = absolute 14-bit bend
//	ProgramChange  value1 = program
func Classify(msg gomidi.Message) (ev Event, ok bool) {
	var ch, a, b uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteOn(&ch, &a, &b):
		return Event{Type: NoteOn, Channel: int(ch) + 1, Value1: int(a), Value2: int(b)}, true
	case msg.GetNoteOff(&ch, &a, &b):
		return Event{Type: NoteOff, Channel: int(ch) + 1, Value1: int(a), Value2: int(b)}, true
	case msg.GetControlChange(&ch, &a, &b):
		return Event{Type: ControlChange, Channel: int(ch) + 1, Value1: int(a), Value2: int(b)}, true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return Event{Type: PitchBend, Channel: int(ch) + 1, Value1: int(abs), Value2: NA}, true
	case msg.GetProgramChange(&ch, &a):
		return Event{Type: ProgramChange, Channel: int(ch) + 1, Value1: int(a), Value2: NA}, true
	}
	return Event{Type: ControlChange, Channel: NA, Value1: NA, Value2: NA}, false
}
