// Package element defines the five elements and their fixed generating and
// controlling relations. The relation tables are exported as plain data so
// every consumer (strength analysis, compatibility, scoring bonuses) reads
// from the same source.
package element

// Element is one of the five elements (oheng).
type Element string

const (
	Wood  Element = "wood"
	Fire  Element = "fire"
	Earth Element = "earth"
	Metal Element = "metal"
	Water Element = "water"
)

// All lists the elements in fixed precedence order. Ties (dominant element,
// group dominant) are broken by position in this slice.
var All = []Element{Wood, Fire, Earth, Metal, Water}

// Generates maps each element to the element it generates (sangsaeng).
var Generates = map[Element]Element{
	Wood:  Fire,
	Fire:  Earth,
	Earth: Metal,
	Metal: Water,
	Water: Wood,
}

// Controls maps each element to the element it controls (sanggeuk).
var Controls = map[Element]Element{
	Wood:  Earth,
	Earth: Water,
	Water: Fire,
	Fire:  Metal,
	Metal: Wood,
}

// GeneratedBy returns the element that generates e.
func GeneratedBy(e Element) Element {
	for parent, child := range Generates {
		if child == e {
			return parent
		}
	}
	return ""
}

// ControlledBy returns the element that controls e.
func ControlledBy(e Element) Element {
	for ruler, subject := range Controls {
		if subject == e {
			return ruler
		}
	}
	return ""
}

// Valid reports whether e is one of the five elements.
func Valid(e Element) bool {
	switch e {
	case Wood, Fire, Earth, Metal, Water:
		return true
	}
	return false
}
