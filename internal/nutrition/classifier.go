package nutrition

// BMIStatus is the weight-for-height category of a measurement.
type BMIStatus string

const (
	BMISeverelyWasted BMIStatus = "Severely Wasted"
	BMIWasted         BMIStatus = "Wasted"
	BMIUnderweight    BMIStatus = "Underweight"
	BMINormal         BMIStatus = "Normal"
	BMIOverweight     BMIStatus = "Overweight"
	BMIObese          BMIStatus = "Obese"
	BMINotAvailable   BMIStatus = "N/A"
)

// HFAStatus is the height-for-age category of a measurement.
type HFAStatus string

const (
	HFASeverelyStunted HFAStatus = "Severely Stunted"
	HFAStunted         HFAStatus = "Stunted"
	HFANormal          HFAStatus = "Normal"
	HFATall            HFAStatus = "Tall"
	HFANotAvailable    HFAStatus = "N/A"
)

// BMIStatuses lists the categories ClassifyBMI can produce, most severe first.
var BMIStatuses = []BMIStatus{BMISeverelyWasted, BMIWasted, BMINormal, BMIOverweight, BMIObese}

// HFAStatuses lists the categories ClassifyHFA can produce.
var HFAStatuses = []HFAStatus{HFASeverelyStunted, HFAStunted, HFANormal, HFATall}

// ClassifiedStatus is the derived nutritional state of one measurement.
type ClassifiedStatus struct {
	BMI       float64   `json:"bmi"`
	BMIStatus BMIStatus `json:"bmiStatus"`
	HFAStatus HFAStatus `json:"hfaStatus"`
}

// NotAvailable is the status reported when no measurement exists.
var NotAvailable = ClassifiedStatus{BMIStatus: BMINotAvailable, HFAStatus: HFANotAvailable}

type bmiBracket struct {
	upper  float64
	status BMIStatus
}

// Upper bounds are exclusive; evaluated low to high.
var bmiTable = []bmiBracket{
	{upper: 16, status: BMISeverelyWasted},
	{upper: 18.5, status: BMIWasted},
	{upper: 25, status: BMINormal},
	{upper: 30, status: BMIOverweight},
}

// ClassifyBMI maps a BMI value to its status bracket.
func ClassifyBMI(bmi float64) BMIStatus {
	for _, b := range bmiTable {
		if bmi < b.upper {
			return b.status
		}
	}
	return BMIObese
}

type hfaRule struct {
	match  func(heightCM float64, ageYears int) bool
	status HFAStatus
}

func shorterThan(heightCM float64, olderThan int) func(float64, int) bool {
	return func(h float64, age int) bool { return h < heightCM && age > olderThan }
}

// Coarse height/age cutoffs, first match wins.
var hfaRules = []hfaRule{
	{match: shorterThan(100, 5), status: HFASeverelyStunted},
	{match: shorterThan(110, 6), status: HFAStunted},
	{match: shorterThan(115, 7), status: HFAStunted},
	{match: shorterThan(120, 8), status: HFAStunted},
	{match: shorterThan(125, 9), status: HFAStunted},
	{match: shorterThan(130, 10), status: HFAStunted},
	{match: func(h float64, age int) bool { return h > 150 && age < 10 }, status: HFATall},
}

// ClassifyHFA maps a height and age in whole years to a height-for-age status.
func ClassifyHFA(heightCM float64, ageYears int) HFAStatus {
	for _, r := range hfaRules {
		if r.match(heightCM, ageYears) {
			return r.status
		}
	}
	return HFANormal
}

// Classify computes BMI and both statuses for a single weigh-in.
func Classify(weightKG, heightCM float64, age Age) ClassifiedStatus {
	bmi := ComputeBMI(weightKG, heightCM)
	return ClassifiedStatus{
		BMI:       bmi,
		BMIStatus: ClassifyBMI(bmi),
		HFAStatus: ClassifyHFA(heightCM, age.Years),
	}
}
