package shim

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/authgate"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
	"github.com/hyperware-ai/hypergrid-operator/internal/payment"
	"github.com/hyperware-ai/hypergrid-operator/internal/walletreg"
)

// WalletResolver maps an authorized client's associated hot wallet address
// to the custody-service wallet id the payment engine dispatches through.
type WalletResolver interface {
	GetByAddress(addr common.Address) (*walletreg.ManagedWallet, error)
}

// Gateway is the /shim/mcp HTTP handler: it authenticates the caller, routes
// a search request to the registry store and a call_provider request to the
// payment engine, and never speaks to a provider directly.
type Gateway struct {
	dir      authgate.Directory
	store    *chainstore.Store
	payments *payment.Engine
	wallets  WalletResolver
	logger   *logrus.Logger
}

// New builds a Gateway. logger defaults to the standard logrus logger.
func New(dir authgate.Directory, store *chainstore.Store, payments *payment.Engine, wallets WalletResolver, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{dir: dir, store: store, payments: payments, wallets: wallets, logger: logger}
}

// Router builds the mux.Router serving /shim/mcp.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(g.logger))
	r.HandleFunc("/shim/mcp", g.handleMcp).Methods(http.MethodPost)
	return r
}

func accessLog(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithField("method", r.Method).WithField("path", r.URL.Path).
				WithField("duration", time.Since(start)).Info("shim request")
		})
	}
}

func (g *Gateway) handleMcp(w http.ResponseWriter, r *http.Request) {
	var req AdapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	clientID := r.Header.Get("X-Client-Id")
	token := r.Header.Get("X-Api-Key")
	if clientID == "" {
		clientID = req.ClientID
	}
	if token == "" {
		token = req.Token
	}

	env, err := decodeMcpEnvelope(req.McpRequestJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestedOperation := env.Kind
	if requestedOperation == "search" {
		// Search is available to every authenticated client, regardless of
		// capability grant; only paid calls require CapabilitiesAll.
		requestedOperation = ""
	}

	client, authErr := authgate.Authenticate(g.dir, clientID, token, requestedOperation)
	if authErr != nil {
		writeAuthError(w, authErr)
		return
	}

	var result any
	switch env.Kind {
	case "search":
		result, err = g.runSearch(r.Context(), *env.Search)
	case "call_provider":
		result, err = g.runCallProvider(r.Context(), client, *env.CallProvider)
	default:
		http.Error(w, "unknown mcp request kind", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AdapterResponse{JSONResponse: string(encoded)})
}

func (g *Gateway) runSearch(ctx context.Context, req searchRequest) (searchResponse, error) {
	providers, err := g.store.Search(ctx, req.Query)
	if err != nil {
		return searchResponse{}, err
	}
	results := make([]searchResult, 0, len(providers))
	for _, p := range providers {
		results = append(results, searchResult{
			ProviderID:  p.ProviderID,
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return searchResponse{Results: results}, nil
}

func (g *Gateway) runCallProvider(ctx context.Context, client authgate.AuthorizedClient, req callProviderInput) (callProviderResponse, error) {
	provider, err := g.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return callProviderResponse{
			Status:       "error",
			ProviderID:   req.ProviderID,
			ProviderName: req.ProviderName,
		}, err
	}

	hotWalletAddr := common.HexToAddress(client.AssociatedHotWalletAddr)
	hotWallet, err := g.wallets.GetByAddress(hotWalletAddr)
	if err != nil {
		return callProviderResponse{
			Status:       "error",
			ProviderID:   req.ProviderID,
			ProviderName: req.ProviderName,
		}, err
	}

	dayBucket := time.Now().UTC().Format("2006-01-02")
	result := g.payments.Attempt(ctx, client.Limits, dayBucket, payment.Request{
		ProviderWallet: common.HexToAddress(provider.Wallet),
		ProviderID:     provider.ProviderID,
		ClientID:       client.ClientID,
		AmountUnits:    provider.Price,
		HotWalletID:    hotWallet.ID,
		HotWalletAddr:  hotWallet.Address,
	})

	status := "error"
	if result.Status == payment.StatusConfirmed {
		status = "ok"
	}
	return callProviderResponse{
		Status:       status,
		ProviderID:   provider.ProviderID,
		ProviderName: provider.Name,
		Request:      buildOutboundRequest(provider.Site, req),
	}, nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if ae, ok := err.(*authgate.Error); ok && ae.Kind == authgate.InsufficientCapabilities {
		status = http.StatusForbidden
	}
	http.Error(w, err.Error(), status)
}
