package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

const defaultShelf = "N/A"

// Catalog looks up inventory items by exact name.
type Catalog interface {
	FindByName(ctx context.Context, name string) (inventory.Medicine, bool, error)
}

// Service encapsulates cart domain operations over stored sessions.
type Service struct {
	Sessions SessionStore
	Catalog  Catalog
	Rates    pricing.Rates
}

// AddRequest is one item to add. Price and quantity accept JSON numbers or
// strings; a missing price is taken from the inventory.
type AddRequest struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price,omitempty"`
	Quantity json.RawMessage `json:"quantity,omitempty"`
	Shelf    string          `json:"shelfLocation,omitempty"`
}

// View is the priced cart shown to staff.
type View struct {
	Items  []pricing.Line  `json:"items"`
	Totals pricing.Summary `json:"totals"`
	Count  int             `json:"count"`
}

func (s *Service) rates() pricing.Rates {
	if s.Rates.Discount.IsZero() && s.Rates.Tax.IsZero() {
		return pricing.DefaultRates
	}
	return s.Rates
}

func (s *Service) load(ctx context.Context, sessionID string) (*Session, error) {
	if s == nil || s.Sessions == nil {
		return nil, errors.New("cart service not configured")
	}
	return s.Sessions.Load(ctx, sessionID)
}

// ViewOf prices a cart with the service's rates.
func (s *Service) ViewOf(c Cart) View {
	lines, sum := c.ComputeTotals(s.rates())
	if lines == nil {
		lines = []pricing.Line{}
	}
	return View{Items: lines, Totals: sum, Count: len(lines)}
}

// View returns the priced cart of a session.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return s.ViewOf(sess.Cart), nil
}

// AddItem validates req and merges it into the session cart.
func (s *Service) AddItem(ctx context.Context, sessionID string, req AddRequest) (View, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if err := s.add(ctx, &sess.Cart, req); err != nil {
		return View{}, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return View{}, err
	}
	obs.ObserveCartOp("add")
	return s.ViewOf(sess.Cart), nil
}

// AddItems adds every valid entry and reports the rejected ones field by field.
func (s *Service) AddItems(ctx context.Context, sessionID string, reqs []AddRequest) (View, []*InvalidInputError, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, nil, err
	}
	var rejected []*InvalidInputError
	added := 0
	for i, req := range reqs {
		err := s.add(ctx, &sess.Cart, req)
		var invalid *InvalidInputError
		switch {
		case err == nil:
			added++
		case errors.As(err, &invalid):
			idx := i
			invalid.Index = &idx
			rejected = append(rejected, invalid)
		default:
			return View{}, nil, err
		}
	}
	if added > 0 {
		if err := s.Sessions.Save(ctx, sess); err != nil {
			return View{}, nil, err
		}
		obs.ObserveCartOp("bulk_add")
	}
	return s.ViewOf(sess.Cart), rejected, nil
}

// RemoveItem drops the named item; removing the last item clears the session cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID, name string) (View, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if sess.Cart.RemoveItem(name) {
		if err := s.Sessions.Save(ctx, sess); err != nil {
			return View{}, err
		}
		obs.ObserveCartOp("remove")
	}
	return s.ViewOf(sess.Cart), nil
}

// LastReceipt returns the receipt of the session's latest checkout, if any.
func (s *Service) LastReceipt(ctx context.Context, sessionID string) (*Receipt, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.LastReceipt, nil
}

func (s *Service) add(ctx context.Context, c *Cart, req AddRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return &InvalidInputError{Field: "name", Reason: "required"}
	}
	qty := 1
	if raw, ok := rawValue(req.Quantity); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return &InvalidInputError{Field: "quantity", Reason: "must be a whole number"}
		}
		qty = n
	}

	shelf := strings.TrimSpace(req.Shelf)
	var price decimal.Decimal
	if raw, ok := rawValue(req.Price); ok {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return &InvalidInputError{Field: "price", Reason: "must be numeric"}
		}
		price = p
	} else {
		med, found, err := s.lookup(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			return &InvalidInputError{Field: "price", Reason: "required for items not in inventory"}
		}
		price = med.Price
		if shelf == "" {
			shelf = med.Shelf
		}
	}
	if shelf == "" {
		shelf = defaultShelf
	}
	return c.AddItem(name, price, qty, shelf)
}

func (s *Service) lookup(ctx context.Context, name string) (inventory.Medicine, bool, error) {
	if s.Catalog == nil {
		return inventory.Medicine{}, false, nil
	}
	return s.Catalog.FindByName(ctx, name)
}

// rawValue unwraps a JSON number or string. Absent, null and blank values report false.
func rawValue(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return trimmed, true
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	return trimmed, true
}
