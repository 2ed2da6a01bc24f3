package extract

import (
	"errors"
	"fmt"
	"regexp"

	"teater-impact-report/internal/category"
)

// MetricQuery counts distinct (activity, member) pairs per unit inside the
// window. Bridge links members to activities; the window is checked on the
// activity's TimeColumn, or on the bridge's when Activity is empty.
type MetricQuery struct {
	Metric     string
	Bridge     string
	BridgeKey  string
	Activity   string
	TimeColumn string
	// Placeholder metrics have no source table yet and always yield 0.
	Placeholder bool
}

// WindowOnBridge reports whether the bridge row itself carries the timestamp.
func (q MetricQuery) WindowOnBridge() bool {
	return !q.Placeholder && q.Activity == ""
}

// Model names the unit and membership tables of one deployment's schema.
type Model struct {
	Name string

	UnitTable string
	UnitID    string
	UnitName  string

	MemberTable  string
	MemberUnit   string
	MemberColumn string

	// BridgeMember is the member column every bridge table carries.
	BridgeMember string
}

// Preset entity models.
var (
	StudentCollege = Model{
		Name:         "student-college",
		UnitTable:    "college",
		UnitID:       "id",
		UnitName:     "college_name",
		MemberTable:  "student_college_details",
		MemberUnit:   "college_id",
		MemberColumn: "student_id",
		BridgeMember: "student_id",
	}
	AccountDepartment = Model{
		Name:         "account-department",
		UnitTable:    "college_degree_department",
		UnitID:       "id",
		UnitName:     "department_name",
		MemberTable:  "college_account",
		MemberUnit:   "department_id",
		MemberColumn: "student_id",
		BridgeMember: "student_id",
	}
)

var ErrUnknownModel = errors.New("unknown unit model")

// ModelByName resolves a preset; an empty name selects StudentCollege.
func ModelByName(name string) (Model, error) {
	switch name {
	case "", StudentCollege.Name:
		return StudentCollege, nil
	case AccountDepartment.Name:
		return AccountDepartment, nil
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// Catalog holds the metric queries of each category, in category order.
type Catalog [category.Count][]MetricQuery

// DefaultCatalog lists the metrics of the TEATER daily report.
func DefaultCatalog() Catalog {
	var c Catalog
	c[category.Teach] = []MetricQuery{
		{Metric: "total_attendance", Bridge: "student_attendance", BridgeKey: "faculty_class_hour_id", Activity: "faculty_class_hours", TimeColumn: "entry_date"},
	}
	c[category.Engage] = []MetricQuery{
		{Metric: "total_attendance", Bridge: "questionnaire_live_has_students", BridgeKey: "questionnaire_id", Activity: "questionnaire_live", TimeColumn: "start_time"},
		{Metric: "total_live_survey", Bridge: "live_survey_submissions", BridgeKey: "live_survey_id", Activity: "live_surveys", TimeColumn: "start_time"},
		{Metric: "total_notify_count", Bridge: "notifications_has_students", BridgeKey: "notifications_id", Activity: "notifications", TimeColumn: "created_at"},
		{Metric: "total_live_class_count", Bridge: "video_conference_has_students", BridgeKey: "video_conference_id", Activity: "video_conference", TimeColumn: "start_time"},
		{Metric: "total_projects_count", Bridge: "academic_project_has_students", BridgeKey: "academic_project_id", Activity: "academic_projects", TimeColumn: "start_time"},
		{Metric: "total_arena_count", Bridge: "weekly_challenge_participants", BridgeKey: "weekly_challenge_id", Activity: "weekly_challenge", TimeColumn: "created_at"},
		{Metric: "total_go_code_count", Bridge: "academic_project_has_students", BridgeKey: "academic_project_id", Activity: "academic_projects", TimeColumn: "start_time"},
	}
	c[category.Assess] = []MetricQuery{
		{Metric: "total_objective_count", Bridge: "questionnaire_has_students", BridgeKey: "questionnaire_id", Activity: "questionnaire", TimeColumn: "start_time"},
		{Metric: "total_subjective_count", Bridge: "questionnaire_subjective_has_students", BridgeKey: "questionnaire_id", Activity: "questionnaire_subjective", TimeColumn: "start_time"},
		{Metric: "total_coding_count", Bridge: "coding_test_has_students", BridgeKey: "test_id", Activity: "coding_test", TimeColumn: "start_time"},
	}
	c[category.Track] = []MetricQuery{
		{Metric: "total_faculty_feedback", Bridge: "faculty_feedback_students", BridgeKey: "feedback_id", Activity: "faculty_feedback", TimeColumn: "start_time"},
		{Metric: "total_semester_feedback", Bridge: "semester_feedback_has_students", BridgeKey: "semester_feedback_id", Activity: "semester_feedback", TimeColumn: "start_time"},
		{Metric: "total_regular_feedback", Bridge: "survey_has_students", BridgeKey: "survey_id", Activity: "survey", TimeColumn: "start_time"},
	}
	c[category.Analyse] = []MetricQuery{
		{Metric: "swoc_count", Placeholder: true},
	}
	c[category.Remediate] = []MetricQuery{
		{Metric: "total_remediate_count", Bridge: "questionnaire_remedial_path", BridgeKey: "questionnaire_id", TimeColumn: "created_at"},
	}
	return c
}

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validIdentifier(kind, value string) error {
	if !identifier.MatchString(value) {
		return fmt.Errorf("invalid %s name: %q", kind, value)
	}
	return nil
}

// Validate checks every identifier that ends up spliced into SQL.
func (m Model) Validate() error {
	for kind, value := range map[string]string{
		"unit table":    m.UnitTable,
		"unit id":       m.UnitID,
		"unit name":     m.UnitName,
		"member table":  m.MemberTable,
		"member unit":   m.MemberUnit,
		"member column": m.MemberColumn,
		"bridge member": m.BridgeMember,
	} {
		if err := validIdentifier(kind, value); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}
	return nil
}

func (q MetricQuery) Validate() error {
	if err := validIdentifier("metric", q.Metric); err != nil {
		return err
	}
	if q.Placeholder {
		return nil
	}
	names := map[string]string{
		"bridge table": q.Bridge,
		"bridge key":   q.BridgeKey,
		"time column":  q.TimeColumn,
	}
	if q.Activity != "" {
		names["activity table"] = q.Activity
	}
	for kind, value := range names {
		if err := validIdentifier(kind, value); err != nil {
			return fmt.Errorf("metric %s: %w", q.Metric, err)
		}
	}
	return nil
}

func (c Catalog) Validate() error {
	for i, queries := range c {
		cat := category.All[i]
		if len(queries) == 0 {
			return fmt.Errorf("category %s has no metrics", cat)
		}
		seen := make(map[string]struct{}, len(queries))
		for _, q := range queries {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("category %s: %w", cat, err)
			}
			if _, dup := seen[q.Metric]; dup {
				return fmt.Errorf("category %s repeats metric %s", cat, q.Metric)
			}
			seen[q.Metric] = struct{}{}
		}
	}
	return nil
}
