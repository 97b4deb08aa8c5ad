package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hverma/loantrack/config"
	"github.com/hverma/loantrack/pkg/advice"
	"github.com/hverma/loantrack/pkg/ledger"
	"github.com/hverma/loantrack/pkg/models"
	"github.com/hverma/loantrack/pkg/reminder"
	"github.com/hverma/loantrack/pkg/store"
	"github.com/shopspring/decimal"
)

// Server holds the ledger instance and its collaborators.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage
	advice  *advice.Client
}

func NewServer(s store.Storage, adviceClient *advice.Client) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s),
		storage: s,
		advice:  adviceClient,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sync", s.syncHandler).Methods("GET")
	api.HandleFunc("/loans", s.saveLoanHandler).Methods("POST")
	api.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	api.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	api.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")
	api.HandleFunc("/loans/{id}/foreclose", s.forecloseHandler).Methods("POST")
	api.HandleFunc("/transactions", s.saveTransactionHandler).Methods("POST")
	api.HandleFunc("/transactions/{id}", s.deleteTransactionHandler).Methods("DELETE")
	api.HandleFunc("/summary", s.summaryHandler).Methods("GET")
	api.HandleFunc("/advice", s.adviceHandler).Methods("GET")

	return router
}

func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.GetSnapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) saveLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID                string          `json:"id"`
		Name              string          `json:"name"`
		Lender            string          `json:"lender"`
		Principal         decimal.Decimal `json:"principal"`
		InterestRate      decimal.Decimal `json:"interestRate"`
		StartDate         string          `json:"startDate"`
		EMIAmount         decimal.Decimal `json:"emiAmount"`
		TenureMonths      int             `json:"tenureMonths"`
		InitialPaidMonths int             `json:"initialPaidMonths"`
		DueDateDay        int             `json:"dueDateDay"`
		Kind              string          `json:"type"`
		Status            string          `json:"status"`
		IsForeclosed      bool            `json:"isForeclosed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan := &models.Loan{
		Name:              req.Name,
		Lender:            req.Lender,
		Principal:         req.Principal,
		InterestRate:      req.InterestRate,
		StartDate:         parseDate(req.StartDate, time.Now()),
		EMIAmount:         req.EMIAmount,
		TenureMonths:      req.TenureMonths,
		InitialPaidMonths: req.InitialPaidMonths,
		DueDateDay:        req.DueDateDay,
		Kind:              models.LoanKind(req.Kind),
		Status:            models.LoanStatus(req.Status),
		IsForeclosed:      req.IsForeclosed,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			http.Error(w, "Invalid loan ID", http.StatusBadRequest)
			return
		}
		loan.ID = id
	}

	saved, err := s.ledger.SaveLoan(loan)
	if err != nil {
		log.Printf("Error saving loan: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	loan, err := s.ledger.GetLoan(loanID)
	if err != nil {
		if errors.Is(err, store.ErrLoanNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteLoan(loanID); err != nil {
		if errors.Is(err, store.ErrLoanNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
		Note   string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	payment, err := s.ledger.RecordPayment(loanID, parseDate(req.Date, time.Now()), req.Amount, req.Note)
	if err != nil {
		if errors.Is(err, store.ErrLoanNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) forecloseHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.Foreclose(loanID, req.Amount, parseDate(req.Date, time.Now()))
	if err != nil {
		if errors.Is(err, store.ErrLoanNotFound) {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) saveTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        string          `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx := &models.Transaction{
		Date:        parseDate(req.Date, time.Now()),
		Amount:      req.Amount,
		Kind:        models.TransactionKind(req.Kind),
		Category:    req.Category,
		Description: req.Description,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			http.Error(w, "Invalid transaction ID", http.StatusBadRequest)
			return
		}
		tx.ID = id
	}

	saved, err := s.ledger.SaveTransaction(tx)
	if err != nil {
		log.Printf("Error saving transaction: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteTransaction(txID); err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// adviceHandler never fails: any upstream problem degrades to the fixed
// apology string with a 200.
func (s *Server) adviceHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.GetAllLoans()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	text := s.advice.Advise(advice.BuildSummaries(loans))
	writeJSON(w, http.StatusOK, map[string]string{"advice": text})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseDate reads a YYYY-MM-DD date, tolerating a trailing time component.
// Unparsable input substitutes the fallback so a bad date never halts the
// calling flow.
func parseDate(s string, fallback time.Time) time.Time {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fallback
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	adviceClient := advice.NewClient(cfg.AdviceAPIURL, cfg.AdviceAPIKey)
	if !adviceClient.IsConfigured() {
		log.Println("Advice API not configured; /api/advice will return the fallback message")
	}

	server := NewServer(sqliteStore, adviceClient)

	rem := reminder.New(sqliteStore, cfg.ReminderTime, cfg.ReminderLookaheadDays)
	if err := rem.Start(); err != nil {
		log.Fatalf("Failed to start reminder job: %v", err)
	}
	defer rem.Stop()

	log.Printf("Server starting on :%s", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, server.routes()))
}
