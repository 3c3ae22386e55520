package scout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/jace/internal/jurisdiction"
)

const researchSystemPrompt = `You are an expert real estate compliance researcher covering US municipal, county, and state regulations for residential property transfers.

Given a jurisdiction (state, county, city), identify every compliance requirement that applies to a standard residential sale or transfer there.

For each requirement provide:
- name: short descriptive name (e.g. "9A Report", "Connect on Sale", "Transfer Disclosure Statement")
- code: statute, ordinance, or form number (e.g. "MMC 13.04.020", "MCA 75-3-606"), or null
- category: one of FORM, INSPECTION, DISCLOSURE, CERTIFICATE, FEE
- description: what the requirement entails, when it applies, who is responsible
- authority: issuing or enforcing body (e.g. "City of Missoula Public Works", "Montana DEQ")
- fee: associated fee if known (e.g. "$225"), or null
- url: official reference URL, or null
- status: one of REQUIRED, LIKELY_REQUIRED, NOT_REQUIRED, UNKNOWN
- notes: exceptions and caveats
- source_reasoning: the statute, municipal code section, or regulation that establishes it

Cover pre-sale disclosures (seller, natural hazard, lead paint, radon), municipal forms and certificates, required inspections (sewer, septic, well, radon), transfer taxes and recording fees, state-level requirements, and city ordinances that set this jurisdiction apart from its neighbours.

Rules:
- Never fabricate a requirement. Include only what you can attribute to a specific statute, ordinance, or authority.
- Mark city-only requirements as such in the description.
- Include local and state-level requirements.
- When unsure whether a requirement applies, include it with status UNKNOWN.

Return a JSON object of the form:
{"requirements": [{"name": "...", "code": "...", "category": "...", "description": "...", "authority": "...", "fee": "...", "url": "...", "status": "...", "notes": "...", "source_reasoning": "..."}]}`

const verifySystemPrompt = `You are a compliance verification specialist reviewing proposed real estate compliance requirements for one US jurisdiction.

For each proposed requirement decide independently:
1. Does it actually exist in this jurisdiction?
2. Is the code or statute citation accurate?
3. Are the description and issuing authority correct?
4. How confident are you, from 0.0 to 1.0?

Confidence bands:
- 0.9 to 1.0: very confident it is real and accurately described
- 0.7 to 0.89: likely real, some details may be imprecise
- 0.5 to 0.69: possibly real, significant uncertainty
- below 0.5: likely fabricated or materially wrong

Drop every requirement scoring below 0.5 from verified_requirements and list it under removed with a reason. Return the kept requirements with the same fields plus confidence and verification_notes.

Return a JSON object of the form:
{"verified_requirements": [{"name": "...", "code": "...", "category": "...", "description": "...", "authority": "...", "fee": "...", "url": "...", "status": "...", "notes": "...", "source_reasoning": "...", "confidence": 0.95, "verification_notes": "..."}], "removed": [{"name": "...", "reason": "..."}]}`

// describe renders a jurisdiction the way both passes present it, most
// specific part first.
func describe(j jurisdiction.Jurisdiction) string {
	var parts []string
	if j.City != "" {
		parts = append(parts, "City: "+j.City)
	}
	if j.County != "" {
		parts = append(parts, "County: "+j.County)
	}
	parts = append(parts, "State: "+j.State)
	return strings.Join(parts, ", ")
}

func researchUserPrompt(j jurisdiction.Jurisdiction) string {
	return fmt.Sprintf("Research all real estate compliance requirements for a standard residential property sale in:\n\n%s\n\n"+
		"Include local and state-level requirements. Be thorough, but include only requirements you are confident exist.", describe(j))
}

func verifyUserPrompt(j jurisdiction.Jurisdiction, proposed []json.RawMessage, minConfidence float64) (string, error) {
	if proposed == nil {
		proposed = []json.RawMessage{}
	}
	list, err := json.MarshalIndent(proposed, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Verify the following proposed real estate compliance requirements for: %s\n\n"+
		"Proposed requirements:\n%s\n\nCross-check each requirement. Remove any with confidence below %.1f.",
		describe(j), list, minConfidence), nil
}
