package models

// Column identifies one output field of a NormalizedRow.
type Column int

// Output columns, in file order.
const (
	ColFirstStarted Column = iota
	ColLastUpdated
	ColEntryID
	ColFormSource
	ColFurthestPageReached
	ColFurthestPageID
	ColFurthestPageIndex
	ColFirstName
	ColLastName
	ColEmail
	ColPhone
	ColAge
	ColDateOfBirth
	ColSex
	ColState
	ColHeight
	ColWeight
	ColGoalWeight
	ColWeightDifference
	ColBMI
	ColHealthConditions
	ColFemaleQuestions
	ColDisqualifier
	ColDisqualifiedReasons
	ColTakingWLMeds
	ColTakenWLMeds
	ColRecentlyTookWLMeds
	ColGLPExperience
	ColPreviousGLPTaken
	ColLastGLPDosage
	ColGLPDetailsLastDose
	ColGLPDetailsStartingWeight
	ColAgreementNotToStack
	ColMatchMedicationOptions
	ColShownRecommendation
	ColSleepOverall
	ColSleepHours
	ColSideEffects
	ColConcernsOptions
	ColPriorityOptions
	ColGLPMotivations
	ColWeightLossPace
	ColWillingToOptions
	ColStateOfMind
	ColEmailTermsCheckbox
	ColIPAddress

	NumColumns int = iota
)

var columnNames = [NumColumns]string{
	ColFirstStarted:             "First Started",
	ColLastUpdated:              "Last Updated",
	ColEntryID:                  "Entry ID",
	ColFormSource:               "Form Source",
	ColFurthestPageReached:      "Furthest Page Reached",
	ColFurthestPageID:           "Furthest Page ID",
	ColFurthestPageIndex:        "Furthest Page Index",
	ColFirstName:                "First Name",
	ColLastName:                 "Last Name",
	ColEmail:                    "Email",
	ColPhone:                    "Phone",
	ColAge:                      "Age at Submission",
	ColDateOfBirth:              "Date of Birth",
	ColSex:                      "Sex Assigned at Birth",
	ColState:                    "State",
	ColHeight:                   "Height",
	ColWeight:                   "Weight at Submission (lbs)",
	ColGoalWeight:               "Goal Weight (lbs)",
	ColWeightDifference:         "Weight Difference (lbs)",
	ColBMI:                      "BMI",
	ColHealthConditions:         "Health Conditions",
	ColFemaleQuestions:          "Female Questions",
	ColDisqualifier:             "Disqualifier",
	ColDisqualifiedReasons:      "Disqualified Reasons",
	ColTakingWLMeds:             "Taking WL Meds",
	ColTakenWLMeds:              "Taken WL Meds",
	ColRecentlyTookWLMeds:       "Recently Took WL Meds",
	ColGLPExperience:            "GLP Experience",
	ColPreviousGLPTaken:         "Previous GLP Taken",
	ColLastGLPDosage:            "Last GLP Dosage",
	ColGLPDetailsLastDose:       "GLP Details Last Dose",
	ColGLPDetailsStartingWeight: "GLP Details Starting Weight",
	ColAgreementNotToStack:      "Agreement Not to Stack",
	ColMatchMedicationOptions:   "Match Medication Options",
	ColShownRecommendation:      "Shown Recommendation",
	ColSleepOverall:             "Sleep Overall",
	ColSleepHours:               "Sleep Hours",
	ColSideEffects:              "Side Effects Experienced from Weight",
	ColConcernsOptions:          "Concerns Options",
	ColPriorityOptions:          "Priority Options",
	ColGLPMotivations:           "GLP Motivations",
	ColWeightLossPace:           "Weight Loss Pace",
	ColWillingToOptions:         "Willing To Options",
	ColStateOfMind:              "State of Mind",
	ColEmailTermsCheckbox:       "Email Terms Conditions Checkbox",
	ColIPAddress:                "IP Address",
}

// String returns the header name of the column.
func (c Column) String() string {
	if c < 0 || int(c) >= NumColumns {
		return ""
	}
	return columnNames[c]
}

// Header returns the column names in file order.
func Header() []string {
	out := make([]string, NumColumns)
	copy(out, columnNames[:])
	return out
}

// NormalizedRow is the flat output unit for one entry.
// Every column is always present; missing data is an empty string.
type NormalizedRow struct {
	Values   [NumColumns]string
	Furthest FurthestPage
}

// Get returns the value of one column.
func (r *NormalizedRow) Get(c Column) string {
	return r.Values[c]
}

// Set assigns the value of one column.
func (r *NormalizedRow) Set(c Column, v string) {
	r.Values[c] = v
}

// EntryID is the dedup key of the row.
func (r *NormalizedRow) EntryID() string {
	return r.Values[ColEntryID]
}

// Record returns the values in header order, ready for a CSV writer.
func (r *NormalizedRow) Record() []string {
	out := make([]string, NumColumns)
	copy(out, r.Values[:])
	return out
}
