package spice

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinPercent = 0
	MaxPercent = 100
)

type Level struct {
	Value int
	Name  string
}

func (l Level) Code() string {
	return l.Name
}

// Percent is the slider value a level stands for.
func (l Level) Percent() int {
	return l.Value * 20
}

func (l Level) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(l.Name, "-", " "))
}

type Enum struct {
	Mild     Level
	Medium   Level
	Hot      Level
	ExtraHot Level
	Fiery    Level
}

var Levels = Enum{
	Mild:     Level{Value: 1, Name: "mild"},
	Medium:   Level{Value: 2, Name: "medium"},
	Hot:      Level{Value: 3, Name: "hot"},
	ExtraHot: Level{Value: 4, Name: "extra-hot"},
	Fiery:    Level{Value: 5, Name: "fiery"},
}

var All = []Level{
	Levels.Mild,
	Levels.Medium,
	Levels.Hot,
	Levels.ExtraHot,
	Levels.Fiery,
}

// ClampPercent bounds a spice percentage to 0..100.
func ClampPercent(percent int) int {
	if percent < MinPercent {
		return MinPercent
	}
	if percent > MaxPercent {
		return MaxPercent
	}
	return percent
}

// FromPercent maps a 0..100 slider value to a level: clamp(round(p/20), 1, 5).
func FromPercent(percent int) Level {
	v := int(math.Round(float64(ClampPercent(percent)) / 20))
	if v < 1 {
		v = 1
	}
	if v > len(All) {
		v = len(All)
	}
	return All[v-1]
}

// ByValue returns the level for a discrete value, or nil if out of range
func ByValue(value int) *Level {
	for _, l := range All {
		if l.Value == value {
			return &l
		}
	}
	return nil
}
