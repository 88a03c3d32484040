package extract

import (
	"strings"
	"testing"

	"github.com/policytrack/renewal-backend/internal/models"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n[1,2]\n```  ", `[1,2]`},
		{"multiline body", "```json\n[\n {\"a\":1}\n]\n```", "[\n {\"a\":1}\n]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnmarshalResponseFencedEqualsBare(t *testing.T) {
	bare := `[{"policyNumber":"123456789","customerName":"JOHN DOE","mod":"qly","fup":"03/2026","amount":4520,"commission":113}]`
	fenced := "```json\n" + bare + "\n```"

	var a, b []models.ExtractedPolicy
	if err := unmarshalResponse(bare, &a); err != nil {
		t.Fatal(err)
	}
	if err := unmarshalResponse(fenced, &b); err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("fenced and bare parses differ: %+v vs %+v", a, b)
	}
	if a[0].Amount != 4520 {
		t.Errorf("amount = %v, want 4520", a[0].Amount)
	}
}

func TestUnmarshalResponseRejectsNonJSON(t *testing.T) {
	var rows []models.ExtractedPolicy
	err := unmarshalResponse("I could not read the document, sorry.", &rows)
	if err == nil {
		t.Fatal("expected parse error for non-JSON output")
	}
	if !strings.Contains(err.Error(), "parse extraction JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReceiptExtractionNullFields(t *testing.T) {
	var out models.ReceiptExtraction
	if err := unmarshalResponse(`{"policyNumber":null,"customerName":"JOHN DOE","confidence":0.4}`, &out); err != nil {
		t.Fatal(err)
	}
	if out.PolicyNumber != nil {
		t.Error("unreadable policy number should stay nil")
	}
	if out.CustomerName == nil || *out.CustomerName != "JOHN DOE" {
		t.Errorf("customer name = %v", out.CustomerName)
	}
}

// The total-vs-installment premium distinction is the most error-prone rule
// in the premium-list document; the instruction must state it explicitly.
func TestPremiumListInstructionPinsTotalColumn(t *testing.T) {
	lower := strings.ToLower(premiumListInstruction)
	if !strings.Contains(lower, "total") || !strings.Contains(lower, "installment") {
		t.Fatal("premium-list instruction must call out the total vs installment columns")
	}
}
