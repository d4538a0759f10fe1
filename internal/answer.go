package internal

import "strings"

// AnswerKind tags the shape the service used for a chat answer.
type AnswerKind int

const (
	AnswerString AnswerKind = iota
	AnswerObject
	AnswerUnrecognized
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerString:
		return "string"
	case AnswerObject:
		return "object"
	}
	return "unrecognized"
}

// Answer is a decoded chat reply. Value is already coerced to text.
type Answer struct {
	Kind  AnswerKind
	Value string
}

// Text returns the answer and false when it is blank.
func (a Answer) Text() (string, bool) {
	if strings.TrimSpace(a.Value) == "" {
		return "", false
	}
	return a.Value, true
}
