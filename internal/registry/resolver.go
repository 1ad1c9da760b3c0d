package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"nutricek/internal/models"
)

const defaultBaseURL = "https://cekbpom.pom.go.id"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNotFound means every query variant was exhausted without a result. This
// is an expected outcome, not a transport failure.
var ErrNotFound = errors.New("registry: product not found")

var (
	csrfPattern   = regexp.MustCompile(`<meta\s+name="csrf-token"\s+content="([^"]+)"`)
	prefixPattern = regexp.MustCompile(`^([A-Z]{2})(\d+)$`)
	pirtPattern   = regexp.MustCompile(`^(PIRT)(\d+)$`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Resolver looks up product registrations on the BPOM public search. The
// upstream is a scraping target: a CSRF token must be fetched from the
// landing page and sent with the search POST, and cookies carry over between
// the two steps.
type Resolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewResolver creates a resolver against the live registry.
func NewResolver() *Resolver {
	jar, _ := cookiejar.New(nil)
	return &Resolver{
		baseURL: defaultBaseURL,
		client:  &http.Client{Jar: jar},
		timeout: 45 * time.Second,
	}
}

// NormalizeKey strips non-alphanumeric characters and uppercases, producing
// the comparison key shared by the resolver and the cache.
func NormalizeKey(identifier string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(identifier, ""))
}

// QueryVariants derives the search strings tried for an identifier, in order.
// A recognized registration pattern (two-letter prefix or PIRT followed by
// digits) yields "PREFIX DIGITS", "PREFIXDIGITS" and the raw uppercased
// input; anything else yields only the raw uppercased input.
func QueryVariants(identifier string) []string {
	raw := strings.ToUpper(strings.TrimSpace(identifier))
	cleaned := NormalizeKey(identifier)

	m := prefixPattern.FindStringSubmatch(cleaned)
	if m == nil {
		m = pirtPattern.FindStringSubmatch(cleaned)
	}
	if m == nil {
		return []string{raw}
	}

	prefix, digits := m[1], m[2]
	return []string{
		prefix + " " + digits,
		prefix + digits,
		raw,
	}
}

// Resolve tries each query variant until one yields a result. Transport
// failures and empty result sets for a variant are not fatal; only full
// exhaustion returns ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*models.ProductRecord, error) {
	variants := QueryVariants(identifier)

	for _, variant := range variants {
		record, err := r.search(ctx, variant)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("WARNING: registry variant %q failed: %v", variant, err)
			continue
		}
		if record != nil {
			return record, nil
		}
	}

	return nil, ErrNotFound
}

// search performs the two-step token fetch + search exchange for one variant
// under a single timeout covering both network steps. Returns (nil, nil)
// when the upstream answered but found nothing.
func (r *Resolver) search(ctx context.Context, query string) (*models.ProductRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	token, err := r.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("draw", "1")
	form.Set("columns[0][data]", "PRODUCT_ID")
	form.Set("columns[0][searchable]", "false")
	form.Set("columns[0][orderable]", "false")
	form.Set("columns[1][data]", "PRODUCT_REGISTER")
	form.Set("columns[1][searchable]", "false")
	form.Set("columns[1][orderable]", "false")
	form.Set("columns[2][data]", "PRODUCT_NAME")
	form.Set("columns[2][searchable]", "false")
	form.Set("columns[2][orderable]", "false")
	form.Set("columns[3][data]", "MANUFACTURER_NAME")
	form.Set("columns[3][searchable]", "false")
	form.Set("columns[3][orderable]", "false")
	form.Set("start", "0")
	form.Set("length", "10")
	form.Set("search[value]", "")
	form.Set("search[regex]", "false")
	form.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/produk-dt/all", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-CSRF-TOKEN", token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Referer", r.baseURL+"/all-produk")
	req.Header.Set("Origin", r.baseURL)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry search returned status %d", resp.StatusCode)
	}

	var result struct {
		RecordsFiltered int              `json:"recordsFiltered"`
		Data            []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	if result.RecordsFiltered == 0 || len(result.Data) == 0 {
		return nil, nil
	}

	return formatProduct(result.Data[0]), nil
}

// fetchToken loads the landing page and extracts the anti-forgery token.
// Cookies set by this request stay in the client jar for the search POST.
func (r *Resolver) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	m := csrfPattern.FindSubmatch(body)
	if m == nil {
		return "", errors.New("csrf token not found on landing page")
	}
	return string(m[1]), nil
}

// formatProduct maps a raw search row into a ProductRecord. The registry is
// inconsistent about which fields it populates, so absent fields get the
// sentinel instead of staying empty.
func formatProduct(raw map[string]any) *models.ProductRecord {
	return &models.ProductRecord{
		RegistryNumber: field(raw, "PRODUCT_REGISTER"),
		ProductName:    field(raw, "PRODUCT_NAME"),
		Brand:          field(raw, "PRODUCT_BRANDS"),
		Manufacturer:   field(raw, "MANUFACTURER_NAME"),
		Address:        field(raw, "MANUFACTURER_ADDRESS"),
		IssuedDate:     field(raw, "PRODUCT_DATE"),
		ExpiredDate:    field(raw, "PRODUCT_EXPIRED"),
		Composition:    field(raw, "INGREDIENTS"),
		Packaging:      field(raw, "PRODUCT_PACKAGE"),
		Status:         field(raw, "STATUS"),
		QRCode:         field(raw, "PRODUCT_QR"),
	}
}

func field(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return models.NotAvailable
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", v))
	if s == "" {
		return models.NotAvailable
	}
	return s
}
