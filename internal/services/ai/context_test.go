package ai

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
)

func TestBuildContextMessage(t *testing.T) {
	t.Parallel()

	profile := &models.SurveyProfile{
		Name:              "Jordan",
		AgeRange:          "25-34",
		Occupation:        "nurse",
		SpendingProfile:   "saver",
		IncomeRange:       "30k-50k",
		FinancialGoals:    []string{"emergency fund", "pay off loan"},
		EducationLevel:    "bachelor",
		Subjects:          []string{"history", "physics"},
		ExerciseFrequency: "3x week",
		HealthGoals:       []string{"sleep more"},
	}
	user := &models.User{
		ID:          uuid.New(),
		Balance:     decimal.NewFromInt(250),
		StressLevel: 7,
	}

	tests := []struct {
		name        string
		topic       models.Topic
		wantParts   []string
		absentParts []string
	}{
		{
			name:        "guardian gets financial fields and balance",
			topic:       models.TopicGuardian,
			wantParts:   []string{"User: Jordan", "Age: 25-34", "Spending profile: saver", "Financial goals: emergency fund, pay off loan", "Balance: $250"},
			absentParts: []string{"Education", "Exercise", "Stress"},
		},
		{
			name:        "scholar gets learning fields only",
			topic:       models.TopicScholar,
			wantParts:   []string{"User: Jordan", "Education: bachelor", "Interests: history, physics"},
			absentParts: []string{"Income", "Sleep", "Balance", "Stress"},
		},
		{
			name:        "vitals gets health fields and stress level",
			topic:       models.TopicVitals,
			wantParts:   []string{"User: Jordan", "Exercise: 3x week", "Health goals: sleep more", "Stress: 7/10"},
			absentParts: []string{"Spending", "Interests", "Balance"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := BuildContextMessage(tt.topic, profile, user)
			for _, want := range tt.wantParts {
				if !strings.Contains(got, want) {
					t.Errorf("missing %q in %q", want, got)
				}
			}
			for _, absent := range tt.absentParts {
				if strings.Contains(got, absent) {
					t.Errorf("unexpected %q in %q", absent, got)
				}
			}
		})
	}
}

func TestBuildContextMessage_SparseProfile(t *testing.T) {
	t.Parallel()

	got := BuildContextMessage(models.TopicGuardian, &models.SurveyProfile{SpendingProfile: "spender"}, nil)
	want := "User: User | Spending profile: spender"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := BuildContextMessage(models.TopicGuardian, nil, nil); got != "" {
		t.Errorf("nil profile produced %q, want empty", got)
	}
	if got := BuildContextMessage(models.TopicGuardian, &models.SurveyProfile{}, nil); got != "" {
		t.Errorf("empty profile produced %q, want empty", got)
	}
}

func TestBuildContextMessage_NilUserOmitsLiveFields(t *testing.T) {
	t.Parallel()

	profile := &models.SurveyProfile{Name: "Jordan", ExerciseFrequency: "daily"}
	got := BuildContextMessage(models.TopicVitals, profile, nil)
	if strings.Contains(got, "Stress") {
		t.Errorf("stress emitted without a user record: %q", got)
	}
	if !strings.Contains(got, "Exercise: daily") {
		t.Errorf("survey fields missing: %q", got)
	}
}

func TestPrimingMessage(t *testing.T) {
	t.Parallel()

	got := PrimingMessage("User: Jordan")
	if !strings.HasPrefix(got, "[User Profile] User: Jordan.") {
		t.Errorf("unexpected priming message: %q", got)
	}
	if !strings.Contains(got, "Remember this about me") {
		t.Errorf("priming message missing retention instruction: %q", got)
	}
}
