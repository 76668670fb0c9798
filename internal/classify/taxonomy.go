package classify

// NumClasses is the size of the EuroSAT taxonomy. The classifier output,
// the stored records and the API response all index into the same list.
const NumClasses = 10

// classNames is ordered exactly as the model was trained; never reorder.
var classNames = [NumClasses]string{
	"AnnualCrop",
	"Forest",
	"HerbaceousVegetation",
	"Highway",
	"Industrial",
	"Pasture",
	"PermanentCrop",
	"Residential",
	"River",
	"SeaLake",
}

// classNamesFR are the display names shown alongside the canonical labels.
var classNamesFR = [NumClasses]string{
	"Cultures annuelles",
	"Forêt",
	"Végétation herbacée",
	"Autoroute",
	"Industriel",
	"Pâturage",
	"Cultures pérennes",
	"Résidentiel",
	"Rivière",
	"Mer/Lac",
}

// Label returns the canonical class name for an index, or "" if out of range.
func Label(i int) string {
	if i < 0 || i >= NumClasses {
		return ""
	}
	return classNames[i]
}

// LabelFR returns the French display name for an index, or "" if out of range.
func LabelFR(i int) string {
	if i < 0 || i >= NumClasses {
		return ""
	}
	return classNamesFR[i]
}

// Index returns the position of a canonical label, or -1 if unknown.
func Index(label string) int {
	for i, name := range classNames {
		if name == label {
			return i
		}
	}
	return -1
}

// Labels returns a copy of the ordered label list.
func Labels() []string {
	out := make([]string, NumClasses)
	copy(out, classNames[:])
	return out
}
