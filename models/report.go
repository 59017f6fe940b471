package models

import "strings"

type Persona string

const (
	PersonaPositive Persona = "positive"
	PersonaNegative Persona = "negative"
)

// Personas lists the report framings in generation order.
var Personas = []Persona{PersonaPositive, PersonaNegative}

// Title returns the capitalized persona name used in artifact keys.
func (p Persona) Title() string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p Persona) Valid() bool {
	return p == PersonaPositive || p == PersonaNegative
}

type Report struct {
	Persona Persona `json:"persona"`
	Body    string  `json:"body"`
	Summary string  `json:"summary,omitempty"`
}

// Artifact is a named markdown blob destined for object storage.
type Artifact struct {
	Key     string `json:"key"`
	Content string `json:"-"`
}
