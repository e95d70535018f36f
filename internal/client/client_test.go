package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gadget-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// fakeHub is an in-memory stand-in for the hub API. It implements just
// enough of the surface for the client tests, including idempotency-key
// deduplication on imports.
type fakeHub struct {
	mu        sync.Mutex
	listings  map[string]*models.ProductListing
	imports   map[string]*models.ImportRecord // keyed by listing ID
	seenKeys  map[string]*models.ImportResult
	nextID    int
	requests  int
	lastPath  string
	aliasWire bool // serve _id/productName/img instead of canonical names
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		listings: make(map[string]*models.ProductListing),
		imports:  make(map[string]*models.ImportRecord),
		seenKeys: make(map[string]*models.ImportResult),
	}
}

func (h *fakeHub) addListing(name, origin string, price float64, quantity int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := fmt.Sprintf("listing-%d", h.nextID)
	h.listings[id] = &models.ProductListing{
		ID:                id,
		Name:              name,
		Image:             "https://img.example.com/" + id,
		Price:             price,
		OriginCountry:     origin,
		Rating:            4,
		AvailableQuantity: quantity,
		UserEmail:         "owner@example.com",
	}
	return id
}

func (h *fakeHub) available(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listings[id].AvailableQuantity
}

func (h *fakeHub) imported(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rec, ok := h.imports[id]; ok {
		return rec.ImportedQuantity
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// marshalListing optionally serves the legacy field aliases.
func (h *fakeHub) marshalListing(l *models.ProductListing) map[string]interface{} {
	if h.aliasWire {
		return map[string]interface{}{
			"_id":               l.ID,
			"productName":       l.Name,
			"img":               l.Image,
			"price":             l.Price,
			"originCountry":     l.OriginCountry,
			"rating":            l.Rating,
			"availableQuantity": l.AvailableQuantity,
			"userEmail":         l.UserEmail,
		}
	}
	return map[string]interface{}{
		"id":                l.ID,
		"name":              l.Name,
		"image":             l.Image,
		"price":             l.Price,
		"originCountry":     l.OriginCountry,
		"rating":            l.Rating,
		"availableQuantity": l.AvailableQuantity,
		"userEmail":         l.UserEmail,
	}
}

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.requests++
	h.lastPath = r.URL.Path
	h.mu.Unlock()

	path := strings.TrimSuffix(r.URL.Path, "/")
	authorized := r.Header.Get("Authorization") == "Bearer "+testToken

	switch {
	case r.Method == http.MethodGet && path == "/products":
		h.mu.Lock()
		out := make([]map[string]interface{}, 0, len(h.listings))
		for _, l := range h.listings {
			out = append(out, h.marshalListing(l))
		}
		h.mu.Unlock()
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/products/"):
		id := strings.TrimPrefix(path, "/products/")
		h.mu.Lock()
		listing, ok := h.listings[id]
		h.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		writeJSON(w, http.StatusOK, h.marshalListing(listing))

	case r.Method == http.MethodPut && path == "/auth/profile":
		if !authorized {
			writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		var body struct {
			DisplayName string `json:"displayName"`
			PhotoURL    string `json:"photoURL"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"userId":      "user-1",
			"email":       "alice@example.com",
			"displayName": body.DisplayName,
			"photoURL":    body.PhotoURL,
			"token":       testToken,
		})

	case r.Method == http.MethodPost && path == "/products":
		if !authorized {
			writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		var fields ListingFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id := h.addListing(fields.Name, fields.OriginCountry, fields.Price, fields.AvailableQuantity)
		h.mu.Lock()
		h.listings[id].Image = fields.Image
		h.listings[id].Rating = fields.Rating
		listing := *h.listings[id]
		h.mu.Unlock()
		writeJSON(w, http.StatusCreated, h.marshalListing(&listing))

	case r.Method == http.MethodPut && strings.HasPrefix(path, "/products/import/"):
		if !authorized {
			writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		h.handleImport(w, r, strings.TrimPrefix(path, "/products/import/"))

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/my-exports/"):
		if !authorized {
			writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		id := strings.TrimPrefix(path, "/my-exports/")
		h.mu.Lock()
		_, ok := h.listings[id]
		delete(h.listings, id)
		h.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/my-imports/"):
		if !authorized {
			writeMessage(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		h.mu.Lock()
		out := make([]*models.ImportRecord, 0, len(h.imports))
		for _, rec := range h.imports {
			out = append(out, rec)
		}
		h.mu.Unlock()
		writeJSON(w, http.StatusOK, out)

	default:
		writeMessage(w, http.StatusNotFound, "No such route")
	}
}

func (h *fakeHub) handleImport(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Quantity <= 0 {
		writeMessage(w, http.StatusBadRequest, "Quantity must be a positive number")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		if cached, ok := h.seenKeys[key]; ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	listing, ok := h.listings[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	if listing.AvailableQuantity < body.Quantity {
		writeMessage(w, http.StatusConflict, "Not enough stock available, try a smaller quantity")
		return
	}

	listing.AvailableQuantity -= body.Quantity
	rec, ok := h.imports[id]
	if !ok {
		rec = &models.ImportRecord{
			ID:        "import-" + id,
			ListingID: id,
			UserID:    "user-1",
			Name:      listing.Name,
		}
		h.imports[id] = rec
	}
	rec.ImportedQuantity += body.Quantity
	rec.AvailableQuantity = listing.AvailableQuantity

	result := &models.ImportResult{
		ListingID:         id,
		AvailableQuantity: listing.AvailableQuantity,
		ImportedQuantity:  rec.ImportedQuantity,
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		h.seenKeys[key] = result
	}
	writeJSON(w, http.StatusOK, result)
}

// recordingNotifier captures notices for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Failure(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func testSession() *models.Session {
	return &models.Session{
		UserID: "user-1",
		Email:  "alice@example.com",
		Token:  testToken,
	}
}

func validFields() *ListingFields {
	return &ListingFields{
		Name:              "Mechanical Keyboard",
		Image:             "https://img.example.com/keyboard",
		Price:             79.9,
		OriginCountry:     "Taiwan",
		Rating:            4.5,
		AvailableQuantity: 25,
	}
}

func setup(t *testing.T) (*fakeHub, *Client, *recordingNotifier) {
	t.Helper()
	hub := newFakeHub()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	notifier := &recordingNotifier{}
	return hub, New(srv.URL, 5*time.Second, notifier), notifier
}

func TestCreateThenGetOneRoundTrip(t *testing.T) {
	_, c, notifier := setup(t)
	ctx := context.Background()

	created, err := c.CreateListing(ctx, testSession(), validFields())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Mechanical Keyboard", created.Name)

	fetched, err := c.GetOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, 25, fetched.AvailableQuantity)

	assert.Equal(t, []string{"Product added successfully"}, notifier.successes)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	hub, c, notifier := setup(t)

	fields := validFields()
	fields.Name = "  "

	_, err := c.CreateListing(context.Background(), testSession(), fields)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Zero(t, hub.requests, "invalid input must not cost a round trip")
	assert.Equal(t, []string{"Please fill all fields"}, notifier.failures)
}

func TestCreateRequiresSession(t *testing.T) {
	hub, c, _ := setup(t)

	_, err := c.CreateListing(context.Background(), nil, validFields())

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, hub.requests)
}

func TestUpdateProfileReturnsFreshSession(t *testing.T) {
	_, c, notifier := setup(t)

	updated, err := c.UpdateProfile(context.Background(), testSession(),
		"Alice Cooper", "https://img.example.com/alice")
	require.NoError(t, err)

	// The returned session is a complete record, ready to persist
	// whole-record over the old one.
	assert.True(t, updated.Valid())
	assert.Equal(t, "Alice Cooper", updated.DisplayName)
	assert.Equal(t, "https://img.example.com/alice", updated.PhotoURL)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.NotEmpty(t, updated.Token)

	assert.Equal(t, []string{"Profile updated successfully"}, notifier.successes)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	hub, c, notifier := setup(t)

	_, err := c.UpdateProfile(context.Background(), nil, "Ghost", "")

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, hub.requests)
	assert.Equal(t, []string{"Sign in to edit your profile"}, notifier.failures)
}

func TestListAllEmptyFilterReturnsEverything(t *testing.T) {
	hub, c, _ := setup(t)
	hub.addListing("Drone", "China", 120, 5)
	hub.addListing("Webcam", "Japan", 45, 8)

	listings, err := c.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestListAllFilterIsCaseInsensitive(t *testing.T) {
	hub, c, _ := setup(t)
	hub.addListing("Drone", "China", 120, 5)
	hub.addListing("Webcam", "Japan", 45, 8)

	for _, filter := range []string{"drone", "DRONE", "dRoNe"} {
		listings, err := c.ListAll(context.Background(), filter)
		require.NoError(t, err)
		require.Len(t, listings, 1, "filter %q", filter)
		assert.Equal(t, "Drone", listings[0].Name)
	}
}

func TestListAllFilterMatchesOriginAndPrice(t *testing.T) {
	hub, c, _ := setup(t)
	hub.addListing("Drone", "China", 120, 5)
	hub.addListing("Webcam", "Japan", 45, 8)

	byOrigin, err := c.ListAll(context.Background(), "japan")
	require.NoError(t, err)
	require.Len(t, byOrigin, 1)
	assert.Equal(t, "Webcam", byOrigin[0].Name)

	byPrice, err := c.ListAll(context.Background(), "120")
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, "Drone", byPrice[0].Name)
}

func TestGetOneUnknownIDIsNotFound(t *testing.T) {
	_, c, _ := setup(t)

	_, err := c.GetOne(context.Background(), "no-such-listing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportMovesQuantityBetweenCounters(t *testing.T) {
	hub, c, notifier := setup(t)
	id := hub.addListing("Drone", "China", 120, 10)
	ctx := context.Background()

	first, err := c.ImportQuantity(ctx, testSession(), id, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, first.AvailableQuantity)
	assert.Equal(t, 4, first.ImportedQuantity)

	second, err := c.ImportQuantity(ctx, testSession(), id, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AvailableQuantity)
	assert.Equal(t, 8, second.ImportedQuantity)

	assert.Equal(t, 2, hub.available(id))
	assert.Equal(t, 8, hub.imported(id))
	assert.Len(t, notifier.successes, 2)
}

func TestImportInsufficientStockChangesNothing(t *testing.T) {
	hub, c, notifier := setup(t)
	id := hub.addListing("Drone", "China", 120, 3)

	_, err := c.ImportQuantity(context.Background(), testSession(), id, 5)

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 3, hub.available(id), "rejected import must not move stock")
	assert.Zero(t, hub.imported(id))
	assert.Equal(t, []string{"Not enough stock, try a smaller quantity"}, notifier.failures)
}

func TestImportRejectsNonPositiveQuantity(t *testing.T) {
	hub, c, _ := setup(t)
	id := hub.addListing("Drone", "China", 120, 3)

	for _, qty := range []int{0, -2} {
		_, err := c.ImportQuantity(context.Background(), testSession(), id, qty)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "quantity %d", qty)
	}
	assert.Zero(t, hub.requests)
}

func TestDeleteFailureLeavesCollectionIntact(t *testing.T) {
	hub, c, notifier := setup(t)
	hub.addListing("Drone", "China", 120, 5)

	err := c.DeleteListing(context.Background(), testSession(), "no-such-listing")

	assert.ErrorIs(t, err, ErrNotFound)
	listings, lerr := c.ListAll(context.Background(), "")
	require.NoError(t, lerr)
	assert.Len(t, listings, 1, "failed delete must not shrink the collection")
	assert.Equal(t, []string{"Delete failed"}, notifier.failures)
}

func TestDeleteRemovesListing(t *testing.T) {
	hub, c, _ := setup(t)
	id := hub.addListing("Drone", "China", 120, 5)

	require.NoError(t, c.DeleteListing(context.Background(), testSession(), id))

	listings, err := c.ListAll(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestNormalizesLegacyFieldAliases(t *testing.T) {
	hub, c, _ := setup(t)
	hub.aliasWire = true
	id := hub.addListing("Drone", "China", 120, 5)

	listing, err := c.GetOne(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, listing.ID)
	assert.Equal(t, "Drone", listing.Name)
	assert.NotEmpty(t, listing.Image)
}

// flakyTransport drops the first request on the floor and records the
// idempotency key of every attempt.
type flakyTransport struct {
	inner    http.RoundTripper
	mu       sync.Mutex
	attempts int
	keys     []string
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.attempts++
	attempt := t.attempts
	if key := req.Header.Get("Idempotency-Key"); key != "" {
		t.keys = append(t.keys, key)
	}
	t.mu.Unlock()

	if attempt == 1 {
		return nil, errors.New("connection reset by peer")
	}
	return t.inner.RoundTrip(req)
}

func TestImportRetriesTransportFailureWithSameKey(t *testing.T) {
	hub, c, _ := setup(t)
	id := hub.addListing("Drone", "China", 120, 10)

	transport := &flakyTransport{inner: http.DefaultTransport}
	c.http.Transport = transport

	result, err := c.ImportQuantity(context.Background(), testSession(), id, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, result.AvailableQuantity)
	assert.Equal(t, 4, result.ImportedQuantity)

	require.Len(t, transport.keys, 2)
	assert.Equal(t, transport.keys[0], transport.keys[1],
		"the retry must reuse the original idempotency key")
	assert.Equal(t, 6, hub.available(id))
}

func TestImportServerRetryIsDeduplicated(t *testing.T) {
	// A retry whose first attempt actually reached the hub must not
	// double-count. The key cache returns the original result.
	hub, c, _ := setup(t)
	id := hub.addListing("Drone", "China", 120, 10)

	first, err := c.ImportQuantity(context.Background(), testSession(), id, 4)
	require.NoError(t, err)

	// Replay the same key manually, as a retry would.
	hub.mu.Lock()
	var key string
	for k := range hub.seenKeys {
		key = k
	}
	hub.mu.Unlock()
	require.NotEmpty(t, key)

	var replayed models.ImportResult
	headers := map[string]string{"Idempotency-Key": key}
	err = c.do(context.Background(), http.MethodPut, "/products/import/"+id,
		testSession(), headers, map[string]int{"quantity": 4}, &replayed)
	require.NoError(t, err)

	assert.Equal(t, first.AvailableQuantity, replayed.AvailableQuantity)
	assert.Equal(t, 6, hub.available(id), "replayed key must not decrement again")
}

func TestCancelledContextSuppressesNotices(t *testing.T) {
	hub, c, notifier := setup(t)
	id := hub.addListing("Drone", "China", 120, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ImportQuantity(ctx, testSession(), id, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, notifier.successes)
	assert.Empty(t, notifier.failures)
}

func TestExpiredTokenIsUnauthenticated(t *testing.T) {
	hub, c, _ := setup(t)
	id := hub.addListing("Drone", "China", 120, 10)

	sess := testSession()
	sess.Token = "stale-token"

	_, err := c.ImportQuantity(context.Background(), sess, id, 4)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 10, hub.available(id))
}
