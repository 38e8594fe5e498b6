package models

// SurveyProfile is the typed onboarding survey record. All fields are
// optional; empty values are omitted from AI context strings.
type SurveyProfile struct {
	Name       string `json:"name,omitempty"`
	AgeRange   string `json:"age_range,omitempty"`
	Occupation string `json:"occupation,omitempty"`

	// guardian
	SpendingProfile string   `json:"spending_profile,omitempty"`
	IncomeRange     string   `json:"income_range,omitempty"`
	Savings         string   `json:"savings,omitempty"`
	FinancialGoals  []string `json:"financial_goals,omitempty"`

	// scholar
	EducationLevel string   `json:"education_level,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	LearningStyle  string   `json:"learning_style,omitempty"`
	StudyGoals     []string `json:"study_goals,omitempty"`

	// vitals
	ExerciseFrequency string   `json:"exercise_frequency,omitempty"`
	SleepQuality      string   `json:"sleep_quality,omitempty"`
	DietQuality       string   `json:"diet_quality,omitempty"`
	HealthGoals       []string `json:"health_goals,omitempty"`
}

// IsEmpty reports whether no survey field has been filled in
func (p *SurveyProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Name == "" && p.AgeRange == "" && p.Occupation == "" &&
		p.SpendingProfile == "" && p.IncomeRange == "" && p.Savings == "" &&
		len(p.FinancialGoals) == 0 &&
		p.EducationLevel == "" && len(p.Subjects) == 0 && p.LearningStyle == "" &&
		len(p.StudyGoals) == 0 &&
		p.ExerciseFrequency == "" && p.SleepQuality == "" && p.DietQuality == "" &&
		len(p.HealthGoals) == 0
}
