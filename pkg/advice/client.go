package advice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hverma/loantrack/pkg/ledger"
	"github.com/hverma/loantrack/pkg/models"
	"github.com/shopspring/decimal"
)

// Apology is returned whenever the advice endpoint cannot be reached or
// produces an unusable response. Callers display it as-is instead of
// surfacing an error.
const Apology = "Sorry, I couldn't generate advice right now. Please try again later."

// LoanSummary is the per-loan shape sent to the text-generation endpoint.
type LoanSummary struct {
	Name             string          `json:"name"`
	Kind             string          `json:"type"`
	Principal        decimal.Decimal `json:"principal"`
	InterestRate     decimal.Decimal `json:"interestRate"`
	MonthlyPayment   decimal.Decimal `json:"monthlyPayment"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	DueDay           int             `json:"dueDay"`
	EndDate          string          `json:"endDate,omitempty"` // YYYY-MM-DD, EMI loans only
}

// Client is the HTTP client for the advice API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new advice API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the client has a URL and key configured.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Advise sends the loan summaries to the advice endpoint and returns the
// generated prose. Failures of any kind are logged and collapse to the
// fixed apology string.
func (c *Client) Advise(summaries []LoanSummary) string {
	text, err := c.advise(summaries)
	if err != nil {
		log.Printf("advice request failed: %v", err)
		return Apology
	}
	return text
}

func (c *Client) advise(summaries []LoanSummary) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("advice client not configured")
	}

	payload := map[string]any{"loans": summaries}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/advice", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Advice string `json:"advice"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal advice: %w", err)
	}
	if out.Advice == "" {
		return "", fmt.Errorf("empty advice in response")
	}
	return out.Advice, nil
}

// BuildSummaries derives the advice payload rows from the loan collection.
// When a loan has no stored interest rate, the rate implied by its
// installment schedule is used instead.
func BuildSummaries(loans []*models.Loan) []LoanSummary {
	summaries := make([]LoanSummary, 0, len(loans))
	for _, loan := range loans {
		rate := loan.InterestRate
		if rate.IsZero() && loan.Kind == models.LoanKindEMI {
			implied := ledger.ImpliedAnnualRate(loan.Principal, loan.TenureMonths, loan.EMIAmount)
			rate = decimal.NewFromFloat(implied)
		}
		endDate := ""
		if loan.Kind == models.LoanKindEMI && !loan.StartDate.IsZero() {
			endDate = ledger.EndDate(loan.StartDate, loan.TenureMonths).Format("2006-01-02")
		}
		summaries = append(summaries, LoanSummary{
			Name:             loan.Name,
			Kind:             string(loan.Kind),
			Principal:        loan.Principal,
			InterestRate:     rate,
			MonthlyPayment:   loan.EMIAmount,
			RemainingBalance: ledger.RemainingPrincipal(loan),
			DueDay:           loan.DueDateDay,
			EndDate:          endDate,
		})
	}
	return summaries
}
