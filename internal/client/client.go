package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gadget-hub/internal/models"
	"gadget-hub/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client performs create/read/update/delete and quantity-transfer
// operations against the hub and reconciles local state from the server's
// authoritative responses. It never computes post-mutation counters
// locally.
type Client struct {
	baseURL  string
	http     *http.Client
	notifier Notifier
	logger   *zap.Logger
}

// New creates a hub client. A nil notifier falls back to log-backed
// notices; a zero timeout falls back to 15 seconds.
func New(baseURL string, timeout time.Duration, notifier Notifier) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if notifier == nil {
		notifier = newLogNotifier()
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// ListingFields carries the editable fields of a listing.
type ListingFields struct {
	Name              string  `json:"name"`
	Image             string  `json:"image"`
	Price             float64 `json:"price"`
	OriginCountry     string  `json:"originCountry"`
	Rating            float64 `json:"rating"`
	AvailableQuantity int     `json:"availableQuantity"`
}

// validate checks the fields client-side so invalid input never costs a
// round trip.
func (f *ListingFields) validate() error {
	var bad []string
	if strings.TrimSpace(f.Name) == "" {
		bad = append(bad, "name")
	}
	if strings.TrimSpace(f.Image) == "" {
		bad = append(bad, "image")
	}
	if strings.TrimSpace(f.OriginCountry) == "" {
		bad = append(bad, "originCountry")
	}
	if f.Price < 0 {
		bad = append(bad, "price")
	}
	if f.Rating < 0 || f.Rating > 5 {
		bad = append(bad, "rating")
	}
	if f.AvailableQuantity < 0 {
		bad = append(bad, "availableQuantity")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// Register creates a password account and returns its session.
func (c *Client) Register(ctx context.Context, email, password, displayName, photoURL string) (*models.Session, error) {
	body := map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
		"photoURL":    photoURL,
	}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, nil, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Login signs in a password account.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, nil, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// FederatedSignIn exchanges a federated identity assertion for a session.
func (c *Client) FederatedSignIn(ctx context.Context, provider, email, displayName, photoURL string) (*models.Session, error) {
	body := map[string]string{
		"provider":    provider,
		"email":       email,
		"displayName": displayName,
		"photoURL":    photoURL,
	}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/federated", nil, nil, body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateProfile rewrites the display name and avatar and returns a fresh
// session carrying the new profile. Callers must persist the returned
// session whole-record; the prior record is superseded, never patched.
func (c *Client) UpdateProfile(ctx context.Context, sess *models.Session, displayName, photoURL string) (*models.Session, error) {
	if !sess.Valid() {
		return nil, c.fail(ctx, "Sign in to edit your profile", ErrUnauthenticated)
	}

	body := map[string]string{
		"displayName": displayName,
		"photoURL":    photoURL,
	}
	var updated models.Session
	if err := c.do(ctx, http.MethodPut, "/auth/profile", sess, nil, body, &updated); err != nil {
		return nil, c.fail(ctx, "Failed to update profile", err)
	}

	c.notify(ctx, "Profile updated successfully")
	return &updated, nil
}

// CreateListing submits a new listing and returns the server-assigned
// record. Missing or malformed fields fail client-side without a request;
// the form state stays with the caller for retry.
func (c *Client) CreateListing(ctx context.Context, sess *models.Session, fields *ListingFields) (*models.ProductListing, error) {
	if !sess.Valid() {
		return nil, c.fail(ctx, "Sign in to export a product", ErrUnauthenticated)
	}
	if err := fields.validate(); err != nil {
		return nil, c.fail(ctx, "Please fill all fields", err)
	}

	var wire wireListing
	if err := c.do(ctx, http.MethodPost, "/products", sess, nil, fields, &wire); err != nil {
		return nil, c.fail(ctx, "Failed to add product", err)
	}

	listing := wire.normalize()
	c.notify(ctx, "Product added successfully")
	return &listing, nil
}

// ListAll retrieves all listings and applies the local filter. The view
// is recomputed from the full set and the current filter text on every
// call; there is no pagination.
func (c *Client) ListAll(ctx context.Context, filterText string) ([]models.ProductListing, error) {
	var wires []wireListing
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, nil, &wires); err != nil {
		return nil, err
	}

	listings := make([]models.ProductListing, 0, len(wires))
	for i := range wires {
		listings = append(listings, wires[i].normalize())
	}

	return filterListings(listings, filterText), nil
}

// GetOne retrieves a single listing. A missing identifier yields
// ErrNotFound so callers can distinguish "confirmed absent" from
// "still loading".
func (c *Client) GetOne(ctx context.Context, id string) (*models.ProductListing, error) {
	var wire wireListing
	if err := c.do(ctx, http.MethodGet, "/products/"+id, nil, nil, nil, &wire); err != nil {
		return nil, err
	}
	listing := wire.normalize()
	return &listing, nil
}

// UpdateListing submits a full replacement of editable fields and returns
// the stored record. Callers must replace their local copy with the
// returned value verbatim; the hub may not have stored exactly what was
// sent.
func (c *Client) UpdateListing(ctx context.Context, sess *models.Session, id string, fields *ListingFields) (*models.ProductListing, error) {
	if !sess.Valid() {
		return nil, c.fail(ctx, "Sign in to edit your exports", ErrUnauthenticated)
	}
	if err := fields.validate(); err != nil {
		return nil, c.fail(ctx, "Please fill all fields", err)
	}

	var wire wireListing
	if err := c.do(ctx, http.MethodPut, "/my-exports/"+id, sess, nil, fields, &wire); err != nil {
		return nil, c.fail(ctx, "Update failed", err)
	}

	listing := wire.normalize()
	c.notify(ctx, "Product updated successfully")
	return &listing, nil
}

// DeleteListing requests removal of an owned listing. On failure the
// caller's local collection must stay unchanged; there is no optimistic
// removal.
func (c *Client) DeleteListing(ctx context.Context, sess *models.Session, id string) error {
	if !sess.Valid() {
		return c.fail(ctx, "Sign in to delete your exports", ErrUnauthenticated)
	}

	if err := c.do(ctx, http.MethodDelete, "/my-exports/"+id, sess, nil, nil, nil); err != nil {
		return c.fail(ctx, "Delete failed", err)
	}

	c.notify(ctx, "Product deleted successfully")
	return nil
}

// ImportQuantity requests a transfer of quantity units into the caller's
// import record. The client-side quantity check is advisory; a concurrent
// importer can still drain the pool, in which case the hub reports
// ErrOutOfStock and no local counters change. Both returned counters are
// authoritative and must replace the caller's copies.
//
// Each logical attempt carries one idempotency key. A transport failure
// is retried once with the same key; the hub deduplicates, so the retry
// cannot double-count.
func (c *Client) ImportQuantity(ctx context.Context, sess *models.Session, id string, quantity int) (*models.ImportResult, error) {
	if !sess.Valid() {
		return nil, c.fail(ctx, "Sign in to import products", ErrUnauthenticated)
	}
	if quantity <= 0 {
		return nil, c.fail(ctx, "Quantity must be a positive number", &ValidationError{Fields: []string{"quantity"}})
	}

	headers := map[string]string{"Idempotency-Key": uuid.New().String()}
	body := map[string]int{"quantity": quantity}

	var result models.ImportResult
	err := c.do(ctx, http.MethodPut, "/products/import/"+id, sess, headers, body, &result)

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		c.logger.Warn("Import request failed in transit, retrying with same key",
			zap.String("listing_id", id),
			zap.Error(err))
		err = c.do(ctx, http.MethodPut, "/products/import/"+id, sess, headers, body, &result)
	}

	if err != nil {
		var srvErr *ServerError
		if errors.As(err, &srvErr) && srvErr.Status == http.StatusConflict {
			err = fmt.Errorf("%w: %s", ErrOutOfStock, srvErr.Message)
			return nil, c.fail(ctx, "Not enough stock, try a smaller quantity", err)
		}
		return nil, c.fail(ctx, "Failed to import product", err)
	}

	c.notify(ctx, fmt.Sprintf("Imported %d items successfully", quantity))
	return &result, nil
}

// ListMyImports retrieves the caller's import records.
func (c *Client) ListMyImports(ctx context.Context, sess *models.Session) ([]models.ImportRecord, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}

	var wires []wireImportRecord
	if err := c.do(ctx, http.MethodGet, "/my-imports/"+sess.UserID, sess, nil, nil, &wires); err != nil {
		return nil, err
	}

	records := make([]models.ImportRecord, 0, len(wires))
	for i := range wires {
		records = append(records, wires[i].normalize())
	}
	return records, nil
}

// RemoveImport deletes the caller's import record for a listing.
func (c *Client) RemoveImport(ctx context.Context, sess *models.Session, listingID string) error {
	if !sess.Valid() {
		return c.fail(ctx, "Sign in to manage your imports", ErrUnauthenticated)
	}

	path := "/my-imports/" + sess.UserID + "/" + listingID
	if err := c.do(ctx, http.MethodDelete, path, sess, nil, nil, nil); err != nil {
		return c.fail(ctx, "Failed to remove product", err)
	}

	c.notify(ctx, "Product removed successfully")
	return nil
}

// do issues one JSON request and decodes the response into out. Transport
// failures surface as NetworkError; HTTP errors map onto the domain error
// taxonomy. A response arriving after ctx was cancelled is discarded.
func (c *Client) do(ctx context.Context, method, path string, sess *models.Session, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	if ctx.Err() != nil {
		// The caller navigated away; suppress the effect of this response.
		return ctx.Err()
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	message := serverMessage(data)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	default:
		return &ServerError{Status: resp.StatusCode, Message: message}
	}
}

func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "request rejected"
}

// notify emits a success notice unless the initiating context is gone.
func (c *Client) notify(ctx context.Context, message string) {
	if ctx.Err() != nil {
		return
	}
	c.notifier.Success(message)
}

// fail emits a failure notice and passes the error through. Cancelled
// contexts produce no notice; there is no view left to show one on.
func (c *Client) fail(ctx context.Context, message string, err error) error {
	if ctx.Err() == nil {
		c.notifier.Failure(message)
	}
	return err
}
