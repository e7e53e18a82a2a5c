package calendar

import "github.com/unselab/saju/internal/saju/element"

// Stem indexes the ten heavenly stems, Branch the twelve earthly branches.
type Stem int

type Branch int

var stemNames = [10]string{
	"gap", "eul", "byeong", "jeong", "mu",
	"gi", "gyeong", "sin", "im", "gye",
}

var branchNames = [12]string{
	"ja", "chuk", "in", "myo", "jin", "sa",
	"o", "mi", "shin", "yu", "sul", "hae",
}

func (s Stem) String() string {
	if s < 0 || int(s) >= len(stemNames) {
		return ""
	}
	return stemNames[s]
}

func (b Branch) String() string {
	if b < 0 || int(b) >= len(branchNames) {
		return ""
	}
	return branchNames[b]
}

// stemElements maps each stem to its element: two stems per element in
// wood, fire, earth, metal, water order.
var stemElements = [10]element.Element{
	element.Wood, element.Wood,
	element.Fire, element.Fire,
	element.Earth, element.Earth,
	element.Metal, element.Metal,
	element.Water, element.Water,
}

var branchElements = [12]element.Element{
	element.Water, element.Earth, element.Wood, element.Wood,
	element.Earth, element.Fire, element.Fire, element.Earth,
	element.Metal, element.Metal, element.Earth, element.Water,
}

// Element returns the element of a stem.
func (s Stem) Element() element.Element {
	if s < 0 || int(s) >= len(stemElements) {
		return ""
	}
	return stemElements[s]
}

// Element returns the element of a branch.
func (b Branch) Element() element.Element {
	if b < 0 || int(b) >= len(branchElements) {
		return ""
	}
	return branchElements[b]
}

// monthBranches maps the civil month (1-12) to the month branch under the
// approximation that the In month begins with February.
var monthBranches = [13]Branch{
	0,
	1,  // January  -> chuk
	2,  // February -> in
	3,  // March    -> myo
	4,  // April    -> jin
	5,  // May      -> sa
	6,  // June     -> o
	7,  // July     -> mi
	8,  // August   -> shin
	9,  // September-> yu
	10, // October  -> sul
	11, // November -> hae
	0,  // December -> ja
}

// monthStemBases gives the stem of the first month (February) for each
// year-stem group, per the five-tigers offset rule.
var monthStemBases = [5]Stem{2, 4, 6, 8, 0}
