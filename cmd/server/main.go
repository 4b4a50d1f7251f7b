package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/double-entry-ledger/internal/config"
	"github.com/sheikh-saqib/double-entry-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/double-entry-ledger/internal/interfaces"
	"github.com/sheikh-saqib/double-entry-ledger/internal/ledger"
	"github.com/sheikh-saqib/double-entry-ledger/internal/models"
	"github.com/sheikh-saqib/double-entry-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/double-entry-ledger/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	var store interfaces.StorageBackend
	if cfg.DatabaseURL != "" {
		pgStore, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		if err := pgStore.Migrate(context.Background()); err != nil {
			log.Fatalf("failed to migrate schema: %v", err)
		}
		store = pgStore
		log.Println("using postgres storage")
	} else {
		store = memory.NewMemoryStorage()
		log.Println("using in-memory storage")
	}

	ledgerService := ledger.NewLedger(store, cfg.DefaultCurrency)
	defer ledgerService.Close()

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		ledgerService.SetEventPublisher(publisher)
		log.Println("publishing events to kafka")
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Code         string             `json:"code"`
				Name         string             `json:"name"`
				AccountType  models.AccountType `json:"account_type"`
				CurrencyCode string             `json:"currency_code"`
				Description  string             `json:"description"`
				Metadata     models.Metadata    `json:"metadata"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}

			account, err := ledgerService.CreateAccount(r.Context(), ledger.CreateAccountParams{
				Code:         req.Code,
				Name:         req.Name,
				AccountType:  req.AccountType,
				CurrencyCode: req.CurrencyCode,
				Description:  req.Description,
				Metadata:     req.Metadata,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, account)

		case http.MethodGet:
			filter := models.AccountFilter{
				CurrencyCode: r.URL.Query().Get("currency_code"),
			}
			if v := r.URL.Query().Get("is_active"); v != "" {
				active := v == "true"
				filter.IsActive = &active
			}

			accounts, err := ledgerService.ListAccounts(r.Context(), filter)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, accounts)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountID, err := models.ParseAccountID(r.URL.Query().Get("account_id"))
		if err != nil {
			http.Error(w, "account_id is required and must be a valid id", http.StatusBadRequest)
			return
		}

		var asOf time.Time
		if v := r.URL.Query().Get("as_of"); v != "" {
			asOf, err = time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "as_of must be RFC3339", http.StatusBadRequest)
				return
			}
		}

		balance, err := ledgerService.GetBalance(r.Context(), accountID, asOf)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			AccountID models.AccountID `json:"account_id"`
			Balance   decimal.Decimal  `json:"balance"`
		}{
			AccountID: accountID,
			Balance:   balance,
		})
	})

	http.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Description   string          `json:"description"`
				Reference     string          `json:"reference"`
				Debits        []postingInput  `json:"debits"`
				Credits       []postingInput  `json:"credits"`
				CurrencyCode  string          `json:"currency_code"`
				EffectiveDate *time.Time      `json:"effective_date"`
				Metadata      models.Metadata `json:"metadata"`
				Pending       bool            `json:"pending"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}

			params := ledger.RecordTransactionParams{
				Description:  req.Description,
				Reference:    req.Reference,
				Debits:       toPostings(req.Debits),
				Credits:      toPostings(req.Credits),
				CurrencyCode: req.CurrencyCode,
				Metadata:     req.Metadata,
				LeavePending: req.Pending,
			}
			if req.EffectiveDate != nil {
				params.EffectiveDate = *req.EffectiveDate
			}

			transaction, err := ledgerService.RecordTransaction(r.Context(), params)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, transaction)

		case http.MethodGet:
			filter, err := parseTransactionFilter(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			transactions, err := ledgerService.ListTransactions(r.Context(), filter)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, transactions)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/transactions/void", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			TransactionID models.TransactionID `json:"transaction_id"`
			Reason        string               `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		reversal, err := ledgerService.VoidTransaction(r.Context(), req.TransactionID, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, reversal)
	})

	log.Println("starting server on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, nil))
}

type postingInput struct {
	AccountID models.AccountID `json:"account_id"`
	Amount    decimal.Decimal  `json:"amount"`
}

func toPostings(inputs []postingInput) []ledger.Posting {
	postings := make([]ledger.Posting, 0, len(inputs))
	for _, in := range inputs {
		postings = append(postings, ledger.Posting{AccountID: in.AccountID, Amount: in.Amount})
	}
	return postings
}

func parseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	var filter models.TransactionFilter

	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := models.ParseAccountID(v)
		if err != nil {
			return filter, errors.New("account_id must be a valid id")
		}
		filter.AccountID = &id
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("start_date must be RFC3339")
		}
		filter.StartDate = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("end_date must be RFC3339")
		}
		filter.EndDate = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("limit must be an integer")
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("offset must be an integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.As(err, new(*models.AccountNotFoundError)),
		errors.As(err, new(*models.TransactionNotFoundError)):
		status = http.StatusNotFound
	case errors.As(err, new(*models.DuplicateAccountError)):
		status = http.StatusConflict
	case errors.As(err, new(*models.ValidationError)),
		errors.As(err, new(*models.BalanceError)),
		errors.As(err, new(*models.CurrencyMismatchError)),
		errors.As(err, new(*models.ImmutableTransactionError)):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}
