package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Artisanstories/wholesale-management-app/internal/application"
	"github.com/Artisanstories/wholesale-management-app/internal/domain"
	"github.com/Artisanstories/wholesale-management-app/internal/infrastructure/repository"
	"github.com/Artisanstories/wholesale-management-app/internal/ports"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// apiPlatform stubs ports.PlatformClient with canned catalog data.
type apiPlatform struct {
	products    []shopify.Product
	productsErr error
	customers   []shopify.Customer
	searched    string
}

func (p *apiPlatform) AuthorizeURL(shop string, scopes []string, redirectURI, state string, online bool) string {
	return ""
}

func (p *apiPlatform) ExchangeToken(ctx context.Context, shop, code string) (*ports.AccessToken, error) {
	return nil, nil
}

func (p *apiPlatform) ValidateToken(ctx context.Context, shop, token string) (bool, error) {
	return true, nil
}

func (p *apiPlatform) GetProducts(ctx context.Context, shop, token string, limit int) ([]shopify.Product, error) {
	return p.products, p.productsErr
}

func (p *apiPlatform) GetCustomers(ctx context.Context, shop, token string, limit int) ([]shopify.Customer, error) {
	return p.customers, nil
}

func (p *apiPlatform) SearchCustomers(ctx context.Context, shop, token, query string) ([]shopify.Customer, error) {
	p.searched = query
	return p.customers, nil
}

func (p *apiPlatform) GetMainThemeID(ctx context.Context, shop, token string) (int64, error) {
	return 0, nil
}

func (p *apiPlatform) GetAsset(ctx context.Context, shop, token string, themeID int64, key string) (string, error) {
	return "", nil
}

func (p *apiPlatform) PutAsset(ctx context.Context, shop, token string, themeID int64, key, value string) error {
	return nil
}

func (p *apiPlatform) DeleteAsset(ctx context.Context, shop, token string, themeID int64, key string) error {
	return nil
}

func newAPIFixture(platform *apiPlatform) *Handler {
	wholesale := application.NewWholesaleService(
		repository.NewMemorySettingsRepository(),
		repository.NewMemoryTagRuleRepository(),
		platform,
		zerolog.Nop(),
	)
	return NewHandler(wholesale, platform, zerolog.Nop())
}

// sessionRequest builds a request carrying an authorized session, the way
// the verify middleware hands it to the handlers.
func sessionRequest(method, target string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	session := &domain.Session{
		ID:          domain.OfflineSessionID("acme.myshopify.com"),
		Shop:        "acme.myshopify.com",
		AccessToken: "shpat_test",
	}
	return r.WithContext(domain.WithSession(r.Context(), session))
}

func TestSettingsEndpoints(t *testing.T) {
	t.Parallel()
	handler := newAPIFixture(&apiPlatform{})

	t.Run("get falls back to defaults", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.GetSettings(rec, sessionRequest("GET", "/api/settings", ""))

		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.Settings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, application.DefaultDiscountPercent, got.DiscountPercent)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.PutSettings(rec, sessionRequest("PUT", "/api/settings", `{"discount_percent":35,"vat_percent":19}`))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.GetSettings(rec, sessionRequest("GET", "/api/settings", ""))
		var got domain.Settings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, 35.0, got.DiscountPercent)
		require.Equal(t, 19.0, got.VATPercent)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.PutSettings(rec, sessionRequest("PUT", "/api/settings", `{not json`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("out-of-range percentage is a 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.PutSettings(rec, sessionRequest("PUT", "/api/settings", `{"discount_percent":150,"vat_percent":20}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTagRuleEndpoints(t *testing.T) {
	t.Parallel()
	handler := newAPIFixture(&apiPlatform{})

	rec := httptest.NewRecorder()
	handler.PutTagRule(rec, sessionRequest("PUT", "/api/tag-rules", `{"tag":" VIP ","discount_percent":30}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var rule domain.TagRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	require.Equal(t, "vip", rule.Tag)

	rec = httptest.NewRecorder()
	handler.ListTagRules(rec, sessionRequest("GET", "/api/tag-rules", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var rules []domain.TagRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 1)

	rec = httptest.NewRecorder()
	handler.DeleteTagRule(rec, sessionRequest("DELETE", "/api/tag-rules?tag=vip", ""))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ListTagRules(rec, sessionRequest("GET", "/api/tag-rules", ""))
	require.JSONEq(t, "[]", rec.Body.String(), "an empty list serializes as [], not null")

	rec = httptest.NewRecorder()
	handler.DeleteTagRule(rec, sessionRequest("DELETE", "/api/tag-rules", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code, "missing tag parameter")
}

func TestGetCustomers(t *testing.T) {
	t.Parallel()

	platform := &apiPlatform{
		customers: []shopify.Customer{
			{Id: 1, Email: "vip@example.com", FirstName: "Vera", Tags: "VIP, trade"},
			{Id: 2, Email: "plain@example.com", FirstName: "Pat", Tags: ""},
		},
	}
	handler := newAPIFixture(platform)

	// One rule above the default, so the two rows differ.
	rec := httptest.NewRecorder()
	handler.PutTagRule(rec, sessionRequest("PUT", "/api/tag-rules", `{"tag":"vip","discount_percent":40}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.GetCustomers(rec, sessionRequest("GET", "/api/customers", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []struct {
		ID              int64    `json:"id"`
		Email           string   `json:"email"`
		Tags            []string `json:"tags"`
		DiscountPercent float64  `json:"discount_percent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	require.Equal(t, []string{"vip", "trade"}, views[0].Tags)
	require.Equal(t, 40.0, views[0].DiscountPercent)
	require.Equal(t, application.DefaultDiscountPercent, views[1].DiscountPercent)

	rec = httptest.NewRecorder()
	handler.GetCustomers(rec, sessionRequest("GET", "/api/customers?query=vera", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "vera", platform.searched, "a query routes through customer search")
}

func TestExportPreviewCSV(t *testing.T) {
	t.Parallel()

	price := decimal.NewFromFloat(100)
	platform := &apiPlatform{
		products: []shopify.Product{
			{Id: 1, Title: "Tee", Variants: []shopify.Variant{{Id: 11, Title: "Small", Price: &price}}},
		},
	}
	handler := newAPIFixture(platform)

	rec := httptest.NewRecorder()
	handler.ExportPreviewCSV(rec, sessionRequest("GET", "/api/wholesale/export.csv", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "wholesale-prices.csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"product", "variant", "retail", "wholesale", "retail_inc_vat", "wholesale_inc_vat"}, rows[0])
	require.Equal(t, []string{"Tee", "Small", "100.00", "80.00", "120.00", "96.00"}, rows[1])
}

func TestPreviewUpstreamFailureIs500(t *testing.T) {
	t.Parallel()

	handler := newAPIFixture(&apiPlatform{productsErr: errors.New("shopify down")})

	rec := httptest.NewRecorder()
	handler.GetPreview(rec, sessionRequest("GET", "/api/wholesale/preview", ""))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
