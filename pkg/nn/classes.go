package nn

import "fmt"

const (
	ClassTank  = 0  // Main battle tank
	ClassIFV   = 1  // Infantry fighting vehicle
	ClassAPC   = 2  // Armoured personnel carrier
	ClassEV    = 3  // Engineering vehicle
	ClassAH    = 4  // Attack helicopter
	ClassTH    = 5  // Transport helicopter
	ClassAAP   = 6  // Attack aircraft / plane
	ClassTA    = 7  // Transport aircraft
	ClassAA    = 8  // Anti-aircraft
	ClassTART  = 9  // Towed artillery
	ClassSPART = 10 // Self-propelled artillery
)

// MilitaryClasses is the ordered class table of the military vehicles dataset.
// The index of each name is the class index used in annotation files.
var MilitaryClasses = []string{
	"TANK",
	"IFV",
	"APC",
	"EV",
	"AH",
	"TH",
	"AAP",
	"TA",
	"AA",
	"TART",
	"SPART",
}

// ClassName returns classes[idx], or "#idx" if idx is outside the table
func ClassName(classes []string, idx int) string {
	if idx < 0 || idx >= len(classes) {
		return fmt.Sprintf("#%v", idx)
	}
	return classes[idx]
}
