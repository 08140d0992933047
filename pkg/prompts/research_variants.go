package prompts

import "fmt"

// researchGuidance holds the per-question search guidance overlay, one entry
// per prompt variant referenced from the sub-question table. A variant id in
// the table that has no entry here is a configuration fault and is rejected
// at dispatch time, before any branch runs.
var researchGuidance = map[string]string{
	"q00": "Check the company's own website first, then business registries. Prefer primary sources over news coverage.",
	"q01": "Look for the legal entity name and registered seat in the site imprint, terms of service, or privacy policy.",
	"q02": "Terms of service and help-center pages usually state whether users can post, upload or share content.",
	"q03": "Look for hosting, storage or caching of user-provided content; distinguish it from purely editorial content.",
	"q04": "Search for marketplace features: third-party sellers, listings, checkout on behalf of traders.",
	"q05": "Check for published user numbers in the EU; press releases and transparency reports are the best source.",
	"q06": "The Commission publishes the list of designated VLOPs and VLOSEs; check it before anything else.",
	"q07": "Look for a notice-and-action or illegal-content reporting mechanism in the product or help pages.",
	"q08": "Search for a published point of contact for authorities, usually on a legal or compliance page.",
	"q09": "Look for an EU legal representative if the company is established outside the Union.",
	"q10": "Check the terms of service for information on content moderation policies, tools and sanctions.",
	"q11": "Search for a published transparency report covering content moderation decisions.",
	"q12": "Look for a statement-of-reasons practice or appeals process for moderation decisions.",
	"q13": "Check for an internal complaint-handling system and out-of-court dispute settlement options.",
	"q14": "Look for advertising: whether ads are shown, and whether ad transparency information is published.",
	"q15": "Look for recommender systems and whether their main parameters are disclosed in the terms.",
	"q16": "Check for protections specific to minors: age limits, default privacy settings, ad restrictions.",
}

// ResearchVariantExists reports whether a variant id resolves to a template.
func ResearchVariantExists(variant string) bool {
	_, ok := researchGuidance[variant]
	return ok
}

// RenderResearch builds the seed instruction for one research branch.
func RenderResearch(variant, companyName, question string, maxIterations int) (string, error) {
	guidance, ok := researchGuidance[variant]
	if !ok {
		return "", fmt.Errorf("unknown research prompt variant %q", variant)
	}
	return format(researchSkeleton, map[string]any{
		"CompanyName":   companyName,
		"Question":      question,
		"Guidance":      guidance,
		"MaxIterations": maxIterations,
	})
}
