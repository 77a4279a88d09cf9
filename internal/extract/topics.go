package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
)

// Topic is a keyword family shared by classification, method selection and monitoring
type Topic string

const (
	TopicHealth      Topic = "health"
	TopicPolitics    Topic = "politics"
	TopicScience     Topic = "science"
	TopicStatistical Topic = "statistical"
)

var topicKeywords = map[Topic][]string{
	TopicHealth: {
		"health", "healthcare", "medical", "vaccine", "vaccinate", "vaccination", "disease",
		"drug", "virus", "cure", "cancer", "covid", "treatment", "doctor", "hospital",
		"pandemic", "infection", "symptom",
	},
	TopicPolitics: {
		"government", "election", "policy", "president", "presidential", "minister", "vote",
		"voter", "voting", "congress", "parliament", "senator", "ballot", "campaign",
	},
	TopicScience: {
		"study", "research", "researcher", "scientist", "scientific", "discovery", "discover",
		"experiment", "journal", "climate", "physics", "laboratory",
	},
	TopicStatistical: {
		"percent", "percentage", "rate", "average", "million", "billion", "statistics",
		"survey", "poll",
	},
}

var topicIndex = buildTopicIndex()

func buildTopicIndex() map[string][]Topic {
	idx := make(map[string][]Topic)
	for topic, kws := range topicKeywords {
		for _, kw := range kws {
			idx[kw] = append(idx[kw], topic)
		}
	}
	return idx
}

// inflectionSuffixes are stripped from a word to find its keyword form, in
// order; "ies" and "ied" become "y"
var inflectionSuffixes = []struct{ suffix, replace string }{
	{"ies", "y"}, {"ied", "y"}, {"es", ""}, {"s", ""}, {"ed", ""}, {"d", ""}, {"ing", ""},
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Words returns the lowercase word tokens of text
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// wordForms returns w and the forms left after stripping one inflection suffix
func wordForms(w string) []string {
	forms := []string{w}
	for _, in := range inflectionSuffixes {
		if len(w) > len(in.suffix)+2 && strings.HasSuffix(w, in.suffix) {
			forms = append(forms, strings.TrimSuffix(w, in.suffix)+in.replace)
		}
	}
	return forms
}

// HasTopic reports whether any keyword of the topic occurs in text as a
// whole word or a plain inflection of one: "studies" matches "study",
// "pollution" does not match "poll".
func HasTopic(text string, topic Topic) bool {
	for _, w := range Words(text) {
		for _, form := range wordForms(w) {
			for _, t := range topicIndex[form] {
				if t == topic {
					return true
				}
			}
		}
	}
	return false
}

// ClassifyType assigns a claim type, medical first and general last
func ClassifyType(text string) model.ClaimType {
	switch {
	case HasTopic(text, TopicHealth):
		return model.ClaimTypeMedical
	case HasTopic(text, TopicScience):
		return model.ClaimTypeScientific
	case HasTopic(text, TopicPolitics):
		return model.ClaimTypePolitical
	case HasTopic(text, TopicStatistical) || strings.Contains(text, "%"):
		return model.ClaimTypeStatistical
	default:
		return model.ClaimTypeGeneral
	}
}
