package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "labeled with range", text: "Score (0-10): 8.5", expected: "8.5"},
		{name: "thai label", text: "คะแนน: 6.5", expected: "6.5"},
		{name: "label with slash ten", text: "Overall Score: 8 / 10", expected: "8"},
		{name: "dash separator", text: "Score - 7", expected: "7"},
		{name: "slash ten only", text: "I'd rate this 9/10 overall", expected: "9"},
		{name: "no score", text: "No score provided", expected: NotAvailable},
		{name: "out of range labeled skipped", text: "Score: 85\nFinal rating 6/10", expected: "6"},
		{name: "fallback in range", text: "Score for this role is roughly 7", expected: "7"},
		{name: "fallback out of range", text: "Score was computed over 2024 samples", expected: NotAvailable},
		{name: "multiline evaluation", text: "Name: Jane\n1. Score (0-10): 9\n2. Analysis: ...", expected: "9"},
		{name: "thai label with range", text: "คะแนน (0-10): 9", expected: "9"},
		{name: "sentence with slash ten", text: "Total Score is 4.5/10", expected: "4.5"},
		{name: "score word without number", text: "Score is unknown", expected: NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractScore(tt.text))
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "plain", text: "Name: Jane Doe\nEmail: jane@example.com", expected: "Jane Doe"},
		{name: "markdown bold", text: "- Name: **สมชาย ใจดี**", expected: "สมชาย ใจดี"},
		{name: "thai label", text: "ชื่อ: สมหญิง รักงาน", expected: "สมหญิง รักงาน"},
		{name: "dash separator", text: "Name - John Smith", expected: "John Smith"},
		{name: "no label", text: "Score: 8", expected: DefaultCandidateName},
		{name: "empty value", text: "Name: **", expected: DefaultCandidateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractName(tt.text))
		})
	}
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@example.co.th", ExtractEmail("Email: jane.doe@example.co.th\nPhone: -"))
	assert.Equal(t, "a_b@mail.io", ExtractEmail("contact a_b@mail.io or b@mail.io"))
	assert.Equal(t, NotAvailable, ExtractEmail("Email: not provided"))
}

func TestExtractRecommendation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "labeled hire", text: "Recommendation: Hire this candidate.", expected: RecommendHire},
		{name: "labeled lower case", text: "decision: reject", expected: RecommendReject},
		{name: "labeled strong potential", text: "Verdict - Strong Potential", expected: RecommendStrongPotential},
		{name: "thai label with gloss", text: "ข้อเสนอแนะ: มีแวว (Strong Potential)", expected: RecommendStrongPotential},
		{name: "thai gloss wins over thai phrase", text: "คำแนะนำ: เรียกสัมภาษณ์ (Interview)", expected: RecommendInterview},
		{name: "thai phrase only", text: "การตัดสินใจ: ควรรับเข้าทำงาน", expected: RecommendHire},
		{name: "thai negated phrase", text: "การตัดสินใจ: ไม่ควรจ้างงาน\nScore: 5", expected: NotAvailable},
		{name: "free text interview", text: "We should interview her next week.", expected: RecommendInterview},
		{name: "free text rejected", text: "The application was rejected by the panel.", expected: RecommendReject},
		{name: "negated hire", text: "I would not hire him.", expected: NotAvailable},
		{name: "negation does not cross sentences", text: "Not a perfect fit. We should hire anyway.", expected: RecommendHire},
		{name: "negation does not cross but", text: "He is not senior, but we would hire him.", expected: RecommendHire},
		{name: "negation far from verb", text: "I do not think we should hire him.", expected: NotAvailable},
		{name: "negated reject", text: "Score: 4\nWe should not reject her outright.", expected: NotAvailable},
		{name: "modal before hire", text: "Based on the profile, I would hire him.", expected: RecommendHire},
		{name: "unlabeled conclusion", text: "Conclusion: We should interview him.", expected: RecommendInterview},
		{name: "article before reject", text: "Summary: This is a reject.", expected: RecommendReject},
		{name: "thai label with hire gloss", text: "ข้อเสนอแนะ: ควรรับเข้าทำงาน (Hire)", expected: RecommendHire},
		{name: "thai label with reject gloss", text: "ข้อเสนอแนะ: ปฏิเสธ (Reject)", expected: RecommendReject},
		{name: "hiring as adjective", text: "Score: 3\nThe hiring team wants Go experience.", expected: NotAvailable},
		{name: "interview as noun", text: "Score: 3\nInterview skills were not assessed.", expected: NotAvailable},
		{name: "interview as noun after article", text: "Score: 3\nHe mentioned an interview at another company.", expected: NotAvailable},
		{name: "bare verb at sentence start", text: "Score: 9\nHire managers value this.", expected: RecommendInterview},
		{name: "score fallback high", text: "Score: 8\nAnalysis: Good candidate.", expected: RecommendInterview},
		{name: "score fallback low", text: "Score: 4\nAnalysis: Bad candidate.", expected: NotAvailable},
		{name: "nothing at all", text: "Analysis pending.", expected: NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractRecommendation(tt.text))
		})
	}

	assert.NotEqual(t, RecommendHire, ExtractRecommendation("I would not hire him."))
}
