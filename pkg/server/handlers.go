package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/itsneelabh/agrimarket/pkg/advisor"
	"github.com/itsneelabh/agrimarket/pkg/apierror"
	"github.com/itsneelabh/agrimarket/pkg/cart"
	"github.com/itsneelabh/agrimarket/pkg/catalog"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": s.cfg.Name,
		"version": s.deps.Version,
		"weather": s.deps.Weather != nil,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, apierror.NotFound("ROUTE_NOT_FOUND", "no route for "+r.Method+" "+r.URL.Path))
}

// Catalogs

type catalogInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Purchasable bool   `json:"purchasable"`
	Items       int    `json:"items"`
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	names := s.deps.Catalogs.Names()
	out := make([]catalogInfo, 0, len(names))
	for _, n := range names {
		c, err := s.deps.Catalogs.Get(n)
		if err != nil {
			continue
		}
		out = append(out, catalogInfo{Name: c.Name, Title: c.Title, Purchasable: c.Purchasable, Items: len(c.Items)})
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Catalogs.Get(r.PathValue("catalog"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	items := c.Filter(catalog.Criteria{
		SearchTerm: q.Get("search"),
		Category:   q.Get("category"),
		Location:   q.Get("location"),
	})
	writeData(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	_, item, err := s.deps.Catalogs.Item(r.PathValue("catalog"), r.PathValue("itemId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Catalogs.Get(r.PathValue("catalog"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c.Facets())
}

// Carts

func owner(r *http.Request) string {
	sess, _ := SessionFromContext(r.Context())
	return sess.UserID
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Carts.Create(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c.Summary())
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Carts.Get(r.Context(), owner(r), r.PathValue("cartId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c.Summary())
}

func (s *Server) handleDeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Carts.Delete(r.Context(), owner(r), r.PathValue("cartId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	Catalog string `json:"catalog"`
	ItemID  string `json:"itemId"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Catalog == "" {
		s.writeError(w, r, apierror.Input("CATALOG_REQUIRED", "catalog is required", "catalog"))
		return
	}
	if req.ItemID == "" {
		s.writeError(w, r, apierror.Input("ITEM_REQUIRED", "itemId is required", "itemId"))
		return
	}

	cat, item, err := s.deps.Catalogs.Item(req.Catalog, req.ItemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !cat.Purchasable {
		s.writeError(w, r, apierror.Input("NOT_PURCHASABLE", fmt.Sprintf("items in %s cannot be added to a cart", cat.Name), "catalog"))
		return
	}
	if !item.Available {
		s.writeError(w, r, apierror.Input("OUT_OF_STOCK", item.Name+" is out of stock", "itemId"))
		return
	}

	c, err := s.deps.Carts.AddItem(r.Context(), owner(r), r.PathValue("cartId"), cart.LineItem{
		ID:        item.ID,
		Name:      item.Name,
		Vendor:    item.Vendor,
		UnitPrice: item.Price,
		Quantity:  1,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c.Summary())
}

// quantityValue accepts a JSON number or free text such as "3 bags"
type quantityValue struct {
	set     bool
	numeric bool
	number  float64
	text    string
}

func (q *quantityValue) UnmarshalJSON(data []byte) error {
	q.set = true
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &q.text)
	}
	if err := json.Unmarshal(data, &q.number); err != nil {
		return errors.New("quantity must be a number or text")
	}
	q.numeric = true
	return nil
}

// Int coerces the value the way the quantity box does: numbers are
// truncated, text goes through cart.ParseQuantity, anything else is 0.
func (q quantityValue) Int() int {
	if !q.numeric {
		return cart.ParseQuantity(q.text)
	}
	switch {
	case q.number >= math.MaxInt32:
		return math.MaxInt32
	case q.number <= math.MinInt32:
		return math.MinInt32
	}
	return int(q.number)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity quantityValue `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !req.Quantity.set {
		s.writeError(w, r, apierror.Input("QUANTITY_REQUIRED", "quantity is required", "quantity"))
		return
	}

	c, err := s.deps.Carts.SetQuantity(r.Context(), owner(r), r.PathValue("cartId"), r.PathValue("itemId"), req.Quantity.Int())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c.Summary())
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Carts.RemoveItem(r.Context(), owner(r), r.PathValue("cartId"), r.PathValue("itemId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c.Summary())
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.deps.Carts.Checkout(r.Context(), owner(r), r.PathValue("cartId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"message": "Your order has been successfully placed and is being processed.",
		"receipt": receipt,
		"display": cart.Display{
			Subtotal: cart.FormatAmount(receipt.Subtotal),
			Tax:      cart.FormatAmount(receipt.Tax),
			Total:    cart.FormatAmount(receipt.Total),
		},
	})
}

// Weather

func (s *Server) advisory(r *http.Request) (weather.Report, error) {
	if s.deps.Weather == nil {
		return weather.Report{}, errWeatherDisabled
	}
	start := time.Now()
	report, err := s.deps.Weather.Advisory(r.Context(), r.URL.Query().Get("location"))
	s.deps.Recorder.RecordOperation(r.Context(), "weather.advisory", time.Since(start), err)
	return report, err
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	report, err := s.advisory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (s *Server) handleWeatherAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.advisory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report.Alerts)
}

// Advisor

// readImage accepts a multipart form with an "image" file or a raw image body
func readImage(r *http.Request) (advisor.Image, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, header, err := r.FormFile("image")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return advisor.Image{}, advisor.ErrNoImage
			}
			return advisor.Image{}, tooLargeOr(err, apierror.Input("INVALID_FORM", "could not read upload", "image"))
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return advisor.Image{}, tooLargeOr(err, apierror.Input("INVALID_FORM", "could not read upload", "image"))
		}
		return advisor.NewImage(data, header.Header.Get("Content-Type"), header.Filename), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return advisor.Image{}, tooLargeOr(err, apierror.Input("INVALID_BODY", "could not read body", "image"))
	}
	return advisor.NewImage(data, ct, ""), nil
}

func tooLargeOr(err error, fallback error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", advisor.ErrImageTooLarge, maxErr.Limit)
	}
	return fallback
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	d, err := s.deps.Advisor.Predict(r.Context(), img)
	s.deps.Recorder.RecordOperation(r.Context(), "advisor.diagnose", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	reply, err := s.deps.Advisor.Chat(r.Context(), req.Message)
	s.deps.Recorder.RecordOperation(r.Context(), "advisor.chat", time.Since(start), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, reply)
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, advisor.Reply{Message: advisor.Greeting, Source: "canned"})
}
