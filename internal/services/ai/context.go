package ai

import (
	"fmt"
	"strings"

	"github.com/zenithlabs/zenith-api/internal/models"
)

const contextFieldDelimiter = " | "

// BuildContextMessage renders a survey profile as the one-time priming
// string for a topic's thread. Survey fields are included only when present
// and joined with a fixed delimiter. The user record supplies the live
// account fields the profile does not store: current balance for guardian,
// current stress level for vitals.
func BuildContextMessage(topic models.Topic, profile *models.SurveyProfile, user *models.User) string {
	if profile == nil || profile.IsEmpty() {
		return ""
	}

	name := profile.Name
	if name == "" {
		name = "User"
	}
	parts := []string{"User: " + name}
	parts = appendField(parts, "Age", profile.AgeRange)
	parts = appendField(parts, "Occupation", profile.Occupation)

	switch topic {
	case models.TopicGuardian:
		parts = appendField(parts, "Spending profile", profile.SpendingProfile)
		parts = appendField(parts, "Income", profile.IncomeRange)
		parts = appendField(parts, "Savings", profile.Savings)
		parts = appendList(parts, "Financial goals", profile.FinancialGoals)
		if user != nil {
			parts = append(parts, "Balance: $"+user.Balance.String())
		}
	case models.TopicScholar:
		parts = appendField(parts, "Education", profile.EducationLevel)
		parts = appendList(parts, "Interests", profile.Subjects)
		parts = appendField(parts, "Learning style", profile.LearningStyle)
		parts = appendList(parts, "Study goals", profile.StudyGoals)
	case models.TopicVitals:
		parts = appendField(parts, "Exercise", profile.ExerciseFrequency)
		parts = appendField(parts, "Sleep", profile.SleepQuality)
		parts = appendField(parts, "Diet", profile.DietQuality)
		parts = appendList(parts, "Health goals", profile.HealthGoals)
		if user != nil {
			parts = append(parts, fmt.Sprintf("Stress: %d/10", user.StressLevel))
		}
	}

	return strings.Join(parts, contextFieldDelimiter)
}

// PrimingMessage wraps the context string in the instruction the thread is
// primed with.
func PrimingMessage(context string) string {
	return fmt.Sprintf("[User Profile] %s. Remember this about me for all our conversations.", context)
}

func appendField(parts []string, label, value string) []string {
	if value == "" {
		return parts
	}
	return append(parts, label+": "+value)
}

func appendList(parts []string, label string, values []string) []string {
	if len(values) == 0 {
		return parts
	}
	return append(parts, label+": "+strings.Join(values, ", "))
}
