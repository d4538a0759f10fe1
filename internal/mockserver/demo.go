package mockserver

import (
	"strings"

	"github.com/iksnae/medisnap/internal"
)

const demoProcessingTime = 1250

// labResults is the canned reading for photographed or scanned images.
func labResults(id string) *internal.InterpretationResult {
	return &internal.InterpretationResult{
		ID:               id,
		DocumentType:     "Lab Results",
		Confidence:       0.92,
		ProcessingTimeMS: demoProcessingTime,
		Interpretation: internal.Interpretation{
			Summary: "This is a lab report showing blood work results. All values appear to be within normal ranges. No immediate medical concerns detected.",
			Sections: []internal.Section{{
				Original:   "WBC 7.2 K/uL, RBC 4.8 M/uL, HGB 14.5 g/dL, HCT 43%, MCV 89 fL",
				Simplified: "Your white blood cells (which fight infection), red blood cells (which carry oxygen), and hemoglobin (oxygen-carrying protein) are all at healthy levels.",
				Terms: []internal.Term{
					{Term: "WBC (White Blood Cells)", Definition: "Cells that fight infections and are part of your immune system", Importance: internal.ImportanceHigh},
					{Term: "RBC (Red Blood Cells)", Definition: "Cells that carry oxygen throughout your body", Importance: internal.ImportanceHigh},
					{Term: "Hemoglobin", Definition: "A protein in red blood cells that binds to oxygen", Importance: internal.ImportanceMedium},
				},
			}},
			MedicalTerms: []string{"WBC", "RBC", "Hemoglobin"},
			Warnings: []string{
				"This is a mock interpretation for demonstration. Always consult your doctor for actual medical advice.",
			},
			NextSteps: []string{
				"Review results with your healthcare provider",
				"Schedule a follow-up if recommended by your doctor",
				"Keep records of your lab results for future reference",
			},
		},
	}
}

// medicalDocument is the canned reading for PDFs.
func medicalDocument(id string) *internal.InterpretationResult {
	return &internal.InterpretationResult{
		ID:               id,
		DocumentType:     "Medical Document",
		Confidence:       0.85,
		ProcessingTimeMS: demoProcessingTime,
		Interpretation: internal.Interpretation{
			Summary: "This medical document has been analyzed. Showing mock data for demonstration purposes.",
			Sections: []internal.Section{{
				Original:   "[Document content would appear here]",
				Simplified: "This is where the plain language explanation of your document would be displayed.",
				Terms: []internal.Term{
					{Term: "Example Medical Term", Definition: "An explanation of what this term means in simple words", Importance: internal.ImportanceMedium},
				},
			}},
			Warnings:  []string{"Demo Mode: Using mock data. Connect to backend for real interpretations."},
			NextSteps: []string{"Set up your backend API", "Configure environment variables"},
		},
	}
}

func demoResult(id, mimeType string) *internal.InterpretationResult {
	if strings.HasPrefix(mimeType, "image/") {
		return labResults(id)
	}
	return medicalDocument(id)
}

// demoAnswer picks a reply from the question's wording.
func demoAnswer(res *internal.InterpretationResult, question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "risk"):
		return "Nothing in this " + strings.ToLower(res.DocumentType) + " points to an immediate risk. Your doctor can tell you what it means for your own situation."
	case strings.Contains(q, "next"):
		if len(res.Interpretation.NextSteps) > 0 {
			return "Suggested next steps:\n\n- " + strings.Join(res.Interpretation.NextSteps, "\n- ")
		}
		return "Talk to your healthcare provider about what to do next."
	case strings.Contains(q, "mean"):
		return res.Interpretation.Summary
	}
	for _, s := range res.Interpretation.Sections {
		for _, t := range s.Terms {
			if strings.Contains(q, strings.ToLower(firstWord(t.Term))) {
				return "**" + t.Term + "**: " + t.Definition
			}
		}
	}
	return "I can explain the terms and results in this document. Try asking about a specific value or term."
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
