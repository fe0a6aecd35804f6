package progression

import "github.com/dtnitsch/funnelx/models"

// DefaultPages is the page sequence shared by the medication funnels.
var DefaultPages = []models.PageDescriptor{
	{Index: 0, ID: "page_0233062066", Key: "current_height_and_weight", RequiredFields: []string{"weight_lbs", "height_feet", "height_inches"}},
	{Index: 1, ID: "page_2884506119", Key: "bmi_goal_weight", RequiredFields: []string{"goal_weight_lbs", "bmi"}},
	{Index: 2, ID: "page_7914175924", Key: "bmi_disqualified"},
	{Index: 3, ID: "page_4777294352", Key: "sex", RequiredFields: []string{"sex_assigned_at_birth"}},
	{Index: 4, ID: "page_4455465552", Key: "female_disqualifiers", RequiredFields: []string{"female_dq_questions"}},
	{Index: 5, ID: "page_0147857189", Key: "specific_effects", RequiredFields: []string{"effects_options_multiple"}},
	{Index: 6, ID: "page_3729980498", Key: "medical_review", RequiredFields: []string{"first_name", "last_name", "state"}},
	{Index: 7, ID: "page_0356581073", Key: "lead_capture", RequiredFields: []string{"email", "phone", "clicked_email_terms_conditions_checkbox"}},
	{Index: 8, ID: "page_2005227088", Key: "main_priority", RequiredFields: []string{"priority_options"}},
	{Index: 9, ID: "page_2471548884", Key: "interstitial_magic_science"},
	{Index: 10, ID: "page_8819757418", Key: "success_interstitial_female"},
	{Index: 11, ID: "page_0461952995", Key: "success_interstitial_male"},
	{Index: 12, ID: "page_7202369300", Key: "interstitial_glp1_how"},
	{Index: 13, ID: "page_4066672896", Key: "glp_motivation", RequiredFields: []string{"glp_motivations"}},
	{Index: 14, ID: "page_6209763550", Key: "pace", RequiredFields: []string{"weight_loss_pace"}},
	{Index: 15, ID: "page_9780197469", Key: "interstitial_works_for_me"},
	{Index: 16, ID: "page_1912862433", Key: "interstitial_i_want_faster"},
	{Index: 17, ID: "page_4709533173", Key: "interstitial_too_fast"},
	{Index: 18, ID: "page_8469008010", Key: "sleep_overall", RequiredFields: []string{"sleep_overall_options"}},
	{Index: 19, ID: "page_1771454475", Key: "sleep_hours", RequiredFields: []string{"sleep_hours_selector"}},
	{Index: 20, ID: "page_8143531633", Key: "success_interstitial_2"},
	{Index: 21, ID: "page_9598316663", Key: "dq_health_conditions", RequiredFields: []string{"dq_health_conditions_options"}},
	{Index: 22, ID: "page_7425910822", Key: "taking_wl_meds", RequiredFields: []string{"taking_wl_meds_options"}},
	{Index: 23, ID: "page_7546122099", Key: "taken_wl_meds", RequiredFields: []string{"taken_wl_meds_options"}},
	{Index: 24, ID: "page_5823926603", Key: "glp_details", RequiredFields: []string{"previous_medication_options"}},
	{Index: 25, ID: "page_0241012732", Key: "patient_willing_to", RequiredFields: []string{"willing_to_options"}},
	{Index: 26, ID: "page_2993066365", Key: "match_medication", RequiredFields: []string{"match_medication_options"}},
	{Index: 27, ID: "page_6095557267", Key: "state_of_mind", RequiredFields: []string{"state_mind_options"}},
	{Index: 28, ID: "page_3616048081", Key: "concerns", RequiredFields: []string{"concerns_options"}},
	{Index: 29, ID: "page_8491832920", Key: "date_of_birth", RequiredFields: []string{"dob_year", "dob_month", "dob_day"}},
	{Index: 30, ID: "page_5106098584", Key: "dq_page"},
	{Index: 31, ID: "page_9359573993", Key: "checkout_page"},
}

// Default returns a Catalog built from DefaultPages.
func Default() *Catalog {
	return MustNew(DefaultPages)
}
