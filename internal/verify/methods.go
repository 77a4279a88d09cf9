package verify

import (
	"github.com/ppiankov/claimwatch/internal/extract"
	"github.com/ppiankov/claimwatch/internal/model"
)

// SelectMethods picks the source categories consulted for a claim.
// News is always included. Topic keywords or the claim type add the
// specialised categories, and social media is added for high-priority
// claims. The result is in canonical method order without duplicates.
func SelectMethods(claim model.Claim, socialTrigger float64) []model.Method {
	set := model.MethodSet{}
	set.Add(model.MethodNews)

	if claim.Type == model.ClaimTypeMedical || extract.HasTopic(claim.Text, extract.TopicHealth) {
		set.Add(model.MethodGovernment, model.MethodAcademic)
	}
	if claim.Type == model.ClaimTypePolitical || extract.HasTopic(claim.Text, extract.TopicPolitics) {
		set.Add(model.MethodGovernment, model.MethodFactCheckers)
	}
	if claim.Type == model.ClaimTypeScientific || extract.HasTopic(claim.Text, extract.TopicScience) {
		set.Add(model.MethodAcademic)
	}
	if claim.Priority > socialTrigger {
		set.Add(model.MethodSocialMedia)
	}

	return set.Sorted()
}
