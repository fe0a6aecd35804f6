// Package normalizer turns raw entries into flat output rows.
package normalizer

import (
	"context"
	"io"
	"log/slog"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/format"
	"github.com/dtnitsch/funnelx/pkg/payload"
	"github.com/dtnitsch/funnelx/pkg/progression"
)

// directFields are columns copied from a single payload key via SafeString.
var directFields = []struct {
	col models.Column
	key string
}{
	{models.ColFirstName, "first_name"},
	{models.ColLastName, "last_name"},
	{models.ColEmail, "email"},
	{models.ColPhone, "phone"},
	{models.ColAge, "age"},
	{models.ColSex, "sex_assigned_at_birth"},
	{models.ColWeight, "weight_lbs"},
	{models.ColGoalWeight, "goal_weight_lbs"},
	{models.ColWeightDifference, "weight_difference"},
	{models.ColBMI, "bmi"},
	{models.ColHealthConditions, "dq_health_conditions_options"},
	{models.ColDisqualifier, "disqualifier"},
	{models.ColTakingWLMeds, "taking_wl_meds_options"},
	{models.ColTakenWLMeds, "taken_wl_meds_options"},
	{models.ColRecentlyTookWLMeds, "recently_took_wl_meds"},
	{models.ColGLPExperience, "glp_experience"},
	{models.ColPreviousGLPTaken, "previous_medication_options"},
	{models.ColLastGLPDosage, "glp1_dosage_question_mg"},
	{models.ColGLPDetailsLastDose, "glp_details_last_dose"},
	{models.ColGLPDetailsStartingWeight, "glp_details_starting_weight"},
	{models.ColAgreementNotToStack, "checkbox_notstack_glp"},
	{models.ColMatchMedicationOptions, "match_medication_options"},
	{models.ColShownRecommendation, "glp_recommendation"},
	{models.ColSleepOverall, "sleep_overall_options"},
	{models.ColSleepHours, "sleep_hours_selector"},
	{models.ColSideEffects, "effects_options_multiple"},
	{models.ColConcernsOptions, "concerns_options"},
	{models.ColPriorityOptions, "priority_options"},
	{models.ColGLPMotivations, "glp_motivations"},
	{models.ColWeightLossPace, "weight_loss_pace"},
	{models.ColWillingToOptions, "willing_to_options"},
	{models.ColStateOfMind, "state_mind_options"},
	{models.ColEmailTermsCheckbox, "clicked_email_terms_conditions_checkbox"},
	{models.ColIPAddress, "ip_address"},
}

// NotApplicable fills Female Questions for entries not marked female.
const NotApplicable = "NA"

// Normalizer maps RawEntry values to NormalizedRow values. It holds no
// per-entry state and is safe for concurrent use.
type Normalizer struct {
	catalog *progression.Catalog
	logger  *slog.Logger
}

// New returns a Normalizer over catalog. A nil logger discards output.
func New(catalog *progression.Catalog, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{catalog: catalog, logger: logger}
}

// Catalog returns the page catalog used for furthest-page lookups.
func (n *Normalizer) Catalog() *progression.Catalog {
	return n.catalog
}

// Normalize builds the output row for raw. It never fails: an unreadable
// payload is logged and treated as empty, and every field conversion
// defaults to an empty or placeholder string.
func (n *Normalizer) Normalize(raw models.RawEntry, formSource string) models.NormalizedRow {
	data, err := payload.Decode(raw.EntryData)
	if err != nil {
		n.logger.Warn("Unreadable entry_data, using empty payload", "entry_id", raw.EntryID, "error", err)
		data = payload.Object{}
	}

	var row models.NormalizedRow
	row.Set(models.ColFirstStarted, format.Timestamp(raw.CreatedAt))
	row.Set(models.ColLastUpdated, format.Timestamp(raw.UpdatedAt))
	row.Set(models.ColEntryID, raw.EntryID)
	row.Set(models.ColFormSource, formSource)

	furthest := n.catalog.Furthest(data)
	row.Furthest = furthest
	row.Set(models.ColFurthestPageReached, furthest.Key)
	row.Set(models.ColFurthestPageID, furthest.ID)
	row.Set(models.ColFurthestPageIndex, furthest.IndexString())
	n.checkFurthest(raw.EntryID, furthest, data)

	for _, f := range directFields {
		row.Set(f.col, format.SafeString(data.Get(f.key)))
	}

	row.Set(models.ColDateOfBirth, format.DateOfBirth(data.Get("dob_day"), data.Get("dob_month"), data.Get("dob_year")))
	row.Set(models.ColState, format.State(data.Get("state")))
	row.Set(models.ColHeight, format.Height(data.Get("height_feet"), data.Get("height_inches")))
	row.Set(models.ColDisqualifiedReasons, format.DisqualifiedReasons(data.Get("disqualified_reasons")))
	row.Set(models.ColFemaleQuestions, femaleQuestions(data))

	return row
}

func femaleQuestions(data payload.Object) string {
	sex := data.Get("sex_assigned_at_birth")
	if sex.Kind != payload.KindString || sex.Str != "female" {
		return NotApplicable
	}
	return format.SafeString(data.Get("female_dq_questions"))
}

// checkFurthest logs when the vendor high-water mark is behind the page
// implied by the fields present in the payload.
func (n *Normalizer) checkFurthest(entryID string, vendor models.FurthestPage, data payload.Object) {
	if !n.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	local, ok := n.catalog.Reached(data)
	if !ok || !vendor.Known() || local.Index <= vendor.Index {
		return
	}
	n.logger.Debug("Vendor furthest page behind payload fields",
		"entry_id", entryID, "vendor_key", vendor.Key, "local_key", local.Key)
}
