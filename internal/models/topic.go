package models

// Topic identifies one of the AI advice domains
type Topic string

const (
	// TopicGuardian is the financial wellness advisor
	TopicGuardian Topic = "guardian"
	// TopicScholar is the study and learning tutor
	TopicScholar Topic = "scholar"
	// TopicVitals is the physical health and wellness coach
	TopicVitals Topic = "vitals"
)

// AllTopics lists every supported topic
var AllTopics = []Topic{TopicGuardian, TopicScholar, TopicVitals}

// Valid reports whether the topic is one of the supported advice domains
func (t Topic) Valid() bool {
	switch t {
	case TopicGuardian, TopicScholar, TopicVitals:
		return true
	default:
		return false
	}
}
