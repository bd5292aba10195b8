package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/skillrec/internal/index"
	"github.com/hyperjump/skillrec/internal/models"
)

// NoResultsMessage is returned when retrieval finds nothing.
const NoResultsMessage = "I couldn't find any relevant assessments for your request."

// FallbackHeader opens the listing returned when generation is unavailable.
const FallbackHeader = "I couldn't generate a summarized recommendation due to high server load, " +
	"but here are the most relevant assessments I found:\n\nRecommended Assessments\n"

const promptTemplate = `You are an expert consultant for SHL, a global leader in talent acquisition and management.
Your goal is to recommend the best assessments based on the user's needs.

Use the following context (details about SHL assessments) to answer the user's request.

Context:
%s

User Request: %s

Please provide recommendations in the following format for each assessment:

Recommended Assessments
[Number]. [Assessment Name]
Test Type: [Test Type]

Description:
[Description]

Remote Testing: [Yes/No]

Adaptive/IRT: [Yes/No]

Duration: [Duration]

If the answer is not in the context, say you don't have enough information.
`

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.NotAvailable
	}
	return s
}

// BuildContext renders one block per hit, fields in a fixed order, separated by "---" lines.
func BuildContext(hits []index.Hit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		e := h.Entry
		blocks[i] = fmt.Sprintf("Name: %s\nTest Type: %s\nDescription: %s\nRemote Testing: %s\nAdaptive/IRT: %s\nDuration: %s\n",
			orNA(e.Name), orNA(e.TestType), orNA(e.Description), orNA(e.RemoteSupport), orNA(e.AdaptiveSupport), orNA(e.Duration))
	}
	return strings.Join(blocks, "\n---\n")
}

// BuildPrompt fills the consultant prompt with the retrieved context and the user's query.
func BuildPrompt(query, context string) string {
	return fmt.Sprintf(promptTemplate, context, query)
}

// DisplayDuration appends " minutes" to a bare duration value.
func DisplayDuration(d string) string {
	d = strings.TrimSpace(d)
	if d == "" || d == models.NotAvailable || strings.Contains(strings.ToLower(d), "minute") {
		return orNA(d)
	}
	return d + " minutes"
}

// Record is the structured form of a fallback recommendation written to the audit files.
type Record struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	TestType        []string `json:"test_type"`
	RemoteSupport   string   `json:"remote_support"`
	AdaptiveSupport string   `json:"adaptive_support"`
	Duration        string   `json:"duration"`
}

// NewRecord builds the audit record for an entry.
func NewRecord(e *models.CatalogEntry) Record {
	return Record{
		Name:            orNA(e.Name),
		URL:             orNA(e.URL),
		Description:     orNA(e.Description),
		TestType:        e.TestTypes(),
		RemoteSupport:   orNA(e.RemoteSupport),
		AdaptiveSupport: orNA(e.AdaptiveSupport),
		Duration:        DisplayDuration(e.Duration),
	}
}

// FormatFallback renders hits as the deterministic listing and returns the records
// shown in it.
func FormatFallback(hits []index.Hit) (string, []Record) {
	var b strings.Builder
	b.WriteString(FallbackHeader)
	records := make([]Record, 0, len(hits))
	for i, h := range hits {
		e := h.Entry
		rec := NewRecord(e)
		records = append(records, rec)

		fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Name)
		fmt.Fprintf(&b, "Test Type: %s\n\n", orNA(e.TestType))
		fmt.Fprintf(&b, "Description:\n%s\n\n", rec.Description)
		fmt.Fprintf(&b, "Remote Testing: %s\n", rec.RemoteSupport)
		fmt.Fprintf(&b, "Adaptive/IRT: %s\n", rec.AdaptiveSupport)
		fmt.Fprintf(&b, "Duration: %s\n\n", rec.Duration)

		js, err := json.MarshalIndent(rec, "", "  ")
		if err == nil {
			b.WriteString("Backend JSON (API response example)\n")
			b.Write(js)
			b.WriteString("\n\n")
		}
	}
	return b.String(), records
}
