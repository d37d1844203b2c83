package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	"github.com/rs/zerolog"
)

// Handler exposes the wholesale REST endpoints. Every method assumes the
// verify-request middleware already placed an authorized session on the
// request context.
type Handler struct {
	wholesale *application.WholesaleService
	platform  ports.PlatformClient
	logger    zerolog.Logger
}

// NewHandler creates a new REST handler
func NewHandler(wholesale *application.WholesaleService, platform ports.PlatformClient, logger zerolog.Logger) *Handler {
	return &Handler{wholesale: wholesale, platform: platform, logger: logger}
}

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())
	settings, err := h.wholesale.GetSettings(r.Context(), session.Shop)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	h.respondJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	var body struct {
		DiscountPercent float64 `json:"discount_percent"`
		VATPercent      float64 `json:"vat_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	settings, err := h.wholesale.SaveSettings(r.Context(), session.Shop, body.DiscountPercent, body.VATPercent)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	h.respondJSON(w, http.StatusOK, settings)
}

// ListTagRules handles GET /api/tag-rules
func (h *Handler) ListTagRules(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())
	rules, err := h.wholesale.ListTagRules(r.Context(), session.Shop)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	if rules == nil {
		rules = []*domain.TagRule{}
	}
	h.respondJSON(w, http.StatusOK, rules)
}

// PutTagRule handles PUT /api/tag-rules
func (h *Handler) PutTagRule(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	var body struct {
		Tag             string  `json:"tag"`
		DiscountPercent float64 `json:"discount_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rule, err := h.wholesale.UpsertTagRule(r.Context(), session.Shop, body.Tag, body.DiscountPercent)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	h.respondJSON(w, http.StatusOK, rule)
}

// DeleteTagRule handles DELETE /api/tag-rules?tag=…
func (h *Handler) DeleteTagRule(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	if err := h.wholesale.DeleteTagRule(r.Context(), session.Shop, r.URL.Query().Get("tag")); err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// customerView is a customer row annotated with the best matching
// wholesale discount.
type customerView struct {
	ID              int64    `json:"id"`
	Email           string   `json:"email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Tags            []string `json:"tags"`
	DiscountPercent float64  `json:"discount_percent"`
}

// GetCustomers handles GET /api/customers?query=…&limit=…
func (h *Handler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	query := r.URL.Query().Get("query")
	list, err := h.listCustomers(r, session, query, limit)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}

	settings, err := h.wholesale.GetSettings(ctx, session.Shop)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}

	views := make([]customerView, 0, len(list))
	for _, customer := range list {
		tags := application.SplitTags(customer.Tags)
		discount, err := h.wholesale.BestDiscountForTags(ctx, session.Shop, tags, settings.DiscountPercent)
		if err != nil {
			h.respondError(w, session.Shop, err)
			return
		}
		views = append(views, customerView{
			ID:              customer.ID,
			Email:           customer.Email,
			FirstName:       customer.FirstName,
			LastName:        customer.LastName,
			Tags:            tags,
			DiscountPercent: discount,
		})
	}
	h.respondJSON(w, http.StatusOK, views)
}

type customerRow struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Tags      string
}

func (h *Handler) listCustomers(r *http.Request, session *domain.Session, query string, limit int) ([]customerRow, error) {
	ctx := r.Context()
	if query != "" {
		customers, err := h.platform.SearchCustomers(ctx, session.Shop, session.AccessToken, query)
		if err != nil {
			return nil, fmt.Errorf("customer search: %w: %v", domain.ErrUpstream, err)
		}
		rows := make([]customerRow, 0, len(customers))
		for _, c := range customers {
			rows = append(rows, customerRow{ID: int64(c.Id), Email: c.Email, FirstName: c.FirstName, LastName: c.LastName, Tags: c.Tags})
		}
		return rows, nil
	}

	customers, err := h.platform.GetCustomers(ctx, session.Shop, session.AccessToken, limit)
	if err != nil {
		return nil, fmt.Errorf("customer list: %w: %v", domain.ErrUpstream, err)
	}
	rows := make([]customerRow, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, customerRow{ID: int64(c.Id), Email: c.Email, FirstName: c.FirstName, LastName: c.LastName, Tags: c.Tags})
	}
	return rows, nil
}

// GetPreview handles GET /api/wholesale/preview?limit=…
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	settings, quotes, err := h.wholesale.Preview(r.Context(), session, limit)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}
	if quotes == nil {
		quotes = []domain.PriceQuote{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"discount_percent": settings.DiscountPercent,
		"vat_percent":      settings.VATPercent,
		"items":            quotes,
	})
}

// ExportPreviewCSV handles GET /api/wholesale/export.csv
func (h *Handler) ExportPreviewCSV(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	_, quotes, err := h.wholesale.Preview(r.Context(), session, limit)
	if err != nil {
		h.respondError(w, session.Shop, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="wholesale-prices.csv"`)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"product", "variant", "retail", "wholesale", "retail_inc_vat", "wholesale_inc_vat"})
	for _, q := range quotes {
		_ = writer.Write([]string{
			q.ProductTitle,
			q.VariantTitle,
			strconv.FormatFloat(q.Retail, 'f', 2, 64),
			strconv.FormatFloat(q.Wholesale, 'f', 2, 64),
			strconv.FormatFloat(q.RetailIncVAT, 'f', 2, 64),
			strconv.FormatFloat(q.WholesaleIncVAT, 'f', 2, 64),
		})
	}
	writer.Flush()
}

// GraphQLProxy handles POST /api/graphql by forwarding the query to the
// shop's Admin GraphQL endpoint with the session's access token.
func (h *Handler) GraphQLProxy(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	endpoint := fmt.Sprintf("https://%s/admin/api/2024-01/graphql.json", session.Shop)
	proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		h.respondError(w, session.Shop, fmt.Errorf("graphql proxy: %w: %v", domain.ErrUpstream, err))
		return
	}
	proxyReq.Header.Set("Content-Type", "application/json")
	proxyReq.Header.Set("X-Shopify-Access-Token", session.AccessToken)

	resp, err := http.DefaultClient.Do(proxyReq)
	if err != nil {
		h.respondError(w, session.Shop, fmt.Errorf("graphql proxy: %w: %v", domain.ErrUpstream, err))
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps the error taxonomy to HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, shop string, err error) {
	switch {
	case errors.Is(err, domain.ErrClientError):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAuthExpired):
		http.Error(w, "authorization expired", http.StatusUnauthorized)
	default:
		h.logger.Error().Err(err).Str("shop", shop).Msg("Request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
