package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
	"souq-orders/internal/notify"
	"souq-orders/internal/pricing"
	orderrepo "souq-orders/internal/repository/order"
	"souq-orders/internal/validation"
)

type orderStore interface {
	InTx(ctx context.Context, fn func(tx orderrepo.Tx) error) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}

type wilayaLookup interface {
	List(ctx context.Context) ([]domain.Wilaya, error)
	GetByName(ctx context.Context, name string) (*domain.Wilaya, error)
}

// Options tunes the commit path. Zero values fall back to defaults.
type Options struct {
	Tolerance     decimal.Decimal
	NotifyTimeout time.Duration
}

type Service struct {
	store         orderStore
	catalog       pricing.CatalogReader
	wilayas       wilayaLookup
	notifier      notify.Notifier
	logger        *log.Logger
	tolerance     decimal.Decimal
	notifyTimeout time.Duration

	now   func() time.Time
	spawn func(func())
}

// New builds the order service. catalog serves the read-only preview; the
// commit and modify paths read the catalog inside their transaction.
func New(store orderrepo.Repository, catalog pricing.CatalogReader, wilayas wilayaLookup, notifier notify.Notifier, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if opts.Tolerance.IsZero() {
		opts.Tolerance = decimal.New(1, -2)
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &Service{
		store:         store,
		catalog:       catalog,
		wilayas:       wilayas,
		notifier:      notifier,
		logger:        logger,
		tolerance:     opts.Tolerance,
		notifyTimeout: opts.NotifyTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		spawn:         func(fn func()) { go fn() },
	}
}

// Preview is the priced cart plus its total for every delivery region.
type Preview struct {
	pricing.Result
	DeliveryOptions []pricing.DeliveryOption
}

// CalculatePricing prices the cart without writing anything.
func (s *Service) CalculatePricing(ctx context.Context, in PreviewInput) (*Preview, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkQuantityScale(in.Items); err != nil {
		return nil, err
	}
	res, err := pricing.Calculate(ctx, pricing.NewResolver(s.catalog, pricing.Fallback), toCartLines(in.Items), s.now())
	if err != nil {
		return nil, err
	}
	wilayas, err := s.wilayas.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wilayas: %w", err)
	}
	return &Preview{Result: *res, DeliveryOptions: pricing.DeliveryOptions(res.Subtotal, wilayas)}, nil
}

// Receipt is the outcome of a committed order.
type Receipt struct {
	Order    *domain.Order
	Subtotal decimal.Decimal
	Lines    []pricing.Line
}

// AddOrder prices the cart and persists the order, its items and an admin
// notification in one transaction. Admins are pushed the new order after
// commit; push failures are logged only.
func (s *Service) AddOrder(ctx context.Context, in AddOrderInput) (*Receipt, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkQuantityScale(in.Items); err != nil {
		return nil, err
	}
	in.Wilaya = strings.TrimSpace(in.Wilaya)
	lines := toCartLines(in.Items)
	now := s.now()

	var receipt *Receipt
	err := s.store.InTx(ctx, func(tx orderrepo.Tx) error {
		fee, err := s.deliveryFee(ctx, in.Wilaya)
		if err != nil {
			return err
		}

		res, err := pricing.Calculate(ctx, pricing.NewResolver(tx.Catalog(), pricing.Strict), lines, now)
		if err != nil {
			return err
		}
		total := res.Subtotal.Add(fee)
		if err := checkStorable(res, total); err != nil {
			return err
		}
		s.checkVerification(in.Verification, res.Subtotal, total)

		o := &domain.Order{
			Status:      domain.StatusPending,
			FullName:    strings.TrimSpace(in.FullName),
			Email:       strings.TrimSpace(in.Email),
			Phone:       strings.TrimSpace(in.Phone),
			Wilaya:      in.Wilaya,
			Address:     strings.TrimSpace(in.Address),
			Notes:       strings.TrimSpace(in.Notes),
			DeliveryFee: fee,
			TotalPrice:  total,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, o.ID, orderItems(res.Lines)); err != nil {
			return err
		}
		if o.Items, err = tx.ListItems(ctx, o.ID); err != nil {
			return err
		}

		if _, err := tx.Notifications().Insert(ctx, o.ID, newOrderMessage(o)); err != nil {
			return err
		}
		receipt = &Receipt{Order: o, Subtotal: res.Subtotal, Lines: res.Lines}
		return nil
	})
	if err != nil {
		s.logger.Printf("order service: add email=%s items=%d error=%v", in.Email, len(in.Items), err)
		return nil, err
	}

	s.logger.Printf("order service: added id=%d total=%s fee=%s lines=%d", receipt.Order.ID, receipt.Order.TotalPrice, receipt.Order.DeliveryFee, len(receipt.Lines))
	s.notifyAdmin(receipt.Order.ID)
	return receipt, nil
}

// Modify rewrites a non-terminal order. Customer fields and fee are replaced;
// when in.Items is non-nil the items are repriced at the current time and
// replace the stored lines.
func (s *Service) Modify(ctx context.Context, id int64, in ModifyInput) (*domain.Order, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkQuantityScale(in.Items); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Wilaya)
	now := s.now()

	var updated *domain.Order
	err := s.store.InTx(ctx, func(tx orderrepo.Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return fmt.Errorf("modify order %d (%s): %w", id, o.Status, domain.ErrTerminalState)
		}

		w, err := s.wilayas.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewValidationError("wilaya", "unknown wilaya")
			}
			return fmt.Errorf("lookup wilaya: %w", err)
		}

		var items []domain.OrderItem
		var subtotal decimal.Decimal
		if in.Items != nil {
			res, err := pricing.Calculate(ctx, pricing.NewResolver(tx.Catalog(), pricing.Strict), toCartLines(in.Items), now)
			if err != nil {
				return err
			}
			if err := checkStorable(res, res.Subtotal.Add(w.DeliveryFee)); err != nil {
				return err
			}
			if err := tx.DeleteItems(ctx, id); err != nil {
				return err
			}
			if err := tx.InsertItems(ctx, id, orderItems(res.Lines)); err != nil {
				return err
			}
			// Reread so names come back split the same way Get returns them.
			if items, err = tx.ListItems(ctx, id); err != nil {
				return err
			}
			subtotal = res.Subtotal
		} else {
			items, err = tx.ListItems(ctx, id)
			if err != nil {
				return err
			}
			subtotal = domain.ItemsSubtotal(items)
		}

		o.FullName = strings.TrimSpace(in.FullName)
		o.Email = strings.TrimSpace(in.Email)
		o.Phone = strings.TrimSpace(in.Phone)
		o.Wilaya = w.Name
		o.Address = strings.TrimSpace(in.Address)
		o.Notes = strings.TrimSpace(in.Notes)
		o.DeliveryFee = w.DeliveryFee
		o.TotalPrice = subtotal.Add(w.DeliveryFee)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		o.Items = items
		updated = o
		return nil
	})
	if err != nil {
		s.logger.Printf("order service: modify id=%d error=%v", id, err)
		return nil, err
	}
	s.logger.Printf("order service: modified id=%d total=%s replaced_items=%t", id, updated.TotalPrice, in.Items != nil)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.store.GetByID(ctx, id)
}

// Page is one page of orders.
type Page struct {
	Orders     []domain.Order
	Pagination Pagination
}

func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	status, err := parseStatusFilter(q.Status)
	if err != nil {
		return nil, err
	}
	page, limit, offset := offsetLimit(q.Page, q.Limit)
	orders, total, err := s.store.List(ctx, orderrepo.ListFilter{
		Status: status,
		Search: q.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Orders: orders, Pagination: newPagination(page, limit, total)}, nil
}

// Export returns every order matching status (all when empty), newest first.
func (s *Service) Export(ctx context.Context, status string) ([]domain.Order, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	orders, _, err := s.store.List(ctx, orderrepo.ListFilter{Status: st})
	return orders, err
}

// UpdateStatus moves an order to any known status, given by code or label.
func (s *Service) UpdateStatus(ctx context.Context, id int64, raw string) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return nil, domain.NewValidationError("status", "must be one of "+statusChoices())
	}
	o, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: status id=%d status=%s", id, status)
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Printf("order service: deleted id=%d", id)
	return nil
}

// deliveryFee returns zero for a blank or unknown region.
func (s *Service) deliveryFee(ctx context.Context, name string) (decimal.Decimal, error) {
	if name == "" {
		s.logger.Printf("order service: no wilaya given, delivery fee 0")
		return decimal.Zero, nil
	}
	w, err := s.wilayas.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("order service: wilaya=%q not found, delivery fee 0", name)
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("lookup wilaya %q: %w", name, err)
	}
	return w.DeliveryFee, nil
}

// checkVerification logs client totals that disagree with the server. The
// server totals are always the ones persisted.
func (s *Service) checkVerification(v *PricingVerification, subtotal, total decimal.Decimal) {
	if v == nil {
		return
	}
	if v.Subtotal.Valid && !pricing.WithinTolerance(v.Subtotal.Decimal, subtotal, s.tolerance) {
		s.logger.Printf("order service: pricing mismatch field=subtotal client=%s server=%s", v.Subtotal.Decimal, subtotal)
	}
	if v.Total.Valid && !pricing.WithinTolerance(v.Total.Decimal, total, s.tolerance) {
		s.logger.Printf("order service: pricing mismatch field=total client=%s server=%s", v.Total.Decimal, total)
	}
}

func (s *Service) notifyAdmin(orderID int64) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyAdmin(ctx, orderID); err != nil {
			s.logger.Printf("order service: notify admin order_id=%d error=%v", orderID, err)
		}
	})
}

func orderItems(lines []pricing.Line) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			ProductName: l.DisplayName,
			ImageURL:    l.ImageURL,
		})
	}
	return items
}

func newOrderMessage(o *domain.Order) string {
	return fmt.Sprintf("طلب جديد رقم %d من %s (%s دج)", o.ID, o.FullName, o.TotalPrice.StringFixed(2))
}

func parseStatusFilter(raw string) (domain.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.StatusUnknown, nil
	}
	st, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return domain.StatusUnknown, domain.NewValidationError("status", "must be one of "+statusChoices())
	}
	return st, nil
}

func statusChoices() string {
	labels := make([]string, 0, 4)
	for _, st := range domain.OrderStatuses() {
		labels = append(labels, st.Label())
	}
	return strings.Join(labels, ", ")
}
