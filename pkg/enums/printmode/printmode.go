package printmode

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Mode struct {
	Name string
}

func (m Mode) Code() string {
	return m.Name
}

func (m Mode) Label() string {
	return cases.Title(language.English).String(m.Name)
}

type Enum struct {
	Unprinted Mode
	Again     Mode
	Full      Mode
	Bill      Mode
}

var Modes = Enum{
	Unprinted: Mode{Name: "unprinted"},
	Again:     Mode{Name: "again"},
	Full:      Mode{Name: "full"},
	Bill:      Mode{Name: "bill"},
}

var All = []Mode{
	Modes.Unprinted,
	Modes.Again,
	Modes.Full,
	Modes.Bill,
}

// ByName returns the mode for a given name, or nil if not found
func ByName(name string) *Mode {
	for _, m := range All {
		if m.Name == name {
			return &m
		}
	}
	return nil
}
