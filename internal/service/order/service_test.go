package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"souq-orders/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type stubNotifier struct {
	err   error
	calls []int64
}

func (s *stubNotifier) NotifyAdmin(_ context.Context, orderID int64) error {
	s.calls = append(s.calls, orderID)
	return s.err
}

func testCatalog() *memoryCatalog {
	start := testNow.Add(-24 * time.Hour)
	end := testNow.Add(24 * time.Hour)
	threshold := int64(5)
	variantID := int64(31)
	return &memoryCatalog{
		products: map[int64]domain.CatalogItem{
			5: {
				ProductID:          5,
				DisplayName:        "Olive oil",
				BasePrice:          dec("1000"),
				DiscountPrice:      decPtr("800"),
				DiscountStart:      &start,
				DiscountEnd:        &end,
				DiscountThreshold:  &threshold,
				Profit:             decPtr("200"),
				DiscountPercentage: decPtr("50"),
			},
			9:  {ProductID: 9, DisplayName: "Semolina", BasePrice: dec("250"), HasMeasureUnit: true},
			12: {ProductID: 12, DisplayName: "Couscous", BasePrice: dec("180")},
		},
		variants: map[int64]domain.CatalogItem{
			31: {ProductID: 12, VariantID: &variantID, DisplayName: "Couscous - 5kg", BasePrice: dec("850")},
		},
	}
}

func testWilayas() *memoryWilayas {
	return &memoryWilayas{rows: []domain.Wilaya{
		{ID: 16, Name: "Alger", DeliveryFee: dec("400")},
		{ID: 31, Name: "Oran", DeliveryFee: dec("600")},
	}}
}

type fixture struct {
	svc      *Service
	store    *memoryStore
	notifier *stubNotifier
	logs     *bytes.Buffer
}

func newFixture() *fixture {
	cat := testCatalog()
	store := newMemoryStore(cat)
	notifier := &stubNotifier{}
	logs := &bytes.Buffer{}
	svc := New(store, cat, testWilayas(), notifier, log.New(logs, "", 0), Options{})
	svc.now = func() time.Time { return testNow }
	svc.spawn = func(fn func()) { fn() }
	return &fixture{svc: svc, store: store, notifier: notifier, logs: logs}
}

func validAddInput() AddOrderInput {
	return AddOrderInput{
		FullName: "Karim Benali",
		Email:    "karim@example.com",
		Phone:    "0550123456",
		Wilaya:   "Alger",
		Address:  "5 rue Larbi Ben M'hidi",
		Items: []ItemInput{
			{ProductID: 5, Quantity: dec("2")},
			{ProductID: 31, ParentProductID: int64Ptr(12), Quantity: dec("1")},
			{ProductID: 5, Quantity: dec("3")},
		},
	}
}

func TestAddOrder_PersistsServerPricedOrder(t *testing.T) {
	f := newFixture()

	receipt, err := f.svc.AddOrder(context.Background(), validAddInput())
	if err != nil {
		t.Fatalf("add order: %v", err)
	}

	// 5 x 700 (discount + special pricing) + 1 x 850
	if !receipt.Subtotal.Equal(dec("4350")) {
		t.Fatalf("unexpected subtotal %s", receipt.Subtotal)
	}
	o := receipt.Order
	if !o.TotalPrice.Equal(dec("4750")) || !o.DeliveryFee.Equal(dec("400")) {
		t.Fatalf("unexpected totals total=%s fee=%s", o.TotalPrice, o.DeliveryFee)
	}
	if o.Status != domain.StatusPending {
		t.Fatalf("unexpected status %s", o.Status)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected merged lines, got %d", len(o.Items))
	}
	if !domain.ItemsSubtotal(o.Items).Add(o.DeliveryFee).Equal(o.TotalPrice) {
		t.Fatalf("total does not match items plus fee")
	}
	if o.Items[1].VariantID == nil || *o.Items[1].VariantID != 31 || o.Items[1].ProductID != 12 {
		t.Fatalf("unexpected variant line %+v", o.Items[1])
	}

	stored, err := f.svc.Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Items) != 2 || f.store.notificationCount() != 1 {
		t.Fatalf("expected items and notification stored, items=%d notifications=%d", len(stored.Items), f.store.notificationCount())
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != o.ID {
		t.Fatalf("expected admin push for order %d, got %v", o.ID, f.notifier.calls)
	}
}

func TestAddOrder_UnresolvableItemLeavesNoRows(t *testing.T) {
	f := newFixture()
	in := validAddInput()
	in.Items = []ItemInput{
		{ProductID: 5, Quantity: dec("1")},
		{ProductID: 404, Quantity: dec("1")},
		{ProductID: 12, Quantity: dec("1")},
	}

	_, err := f.svc.AddOrder(context.Background(), in)
	var pnf *domain.ProductsNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("expected products not found, got %v", err)
	}
	if len(pnf.IDs) != 1 || pnf.IDs[0] != 404 {
		t.Fatalf("unexpected ids %v", pnf.IDs)
	}
	if f.store.orderCount() != 0 || f.store.itemCount() != 0 || f.store.notificationCount() != 0 {
		t.Fatalf("expected no rows, got orders=%d items=%d notifications=%d", f.store.orderCount(), f.store.itemCount(), f.store.notificationCount())
	}
	if len(f.notifier.calls) != 0 {
		t.Fatalf("no push expected on failure")
	}
}

func TestAddOrder_WriteFailureRollsBack(t *testing.T) {
	f := newFixture()
	boom := errors.New("disk full")
	f.store.failInsertItems = boom

	if _, err := f.svc.AddOrder(context.Background(), validAddInput()); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if f.store.orderCount() != 0 {
		t.Fatalf("order header should be rolled back")
	}
}

func TestAddOrder_ValidationHappensBeforeTransaction(t *testing.T) {
	f := newFixture()
	in := validAddInput()
	in.Email = "karim-at-example"
	in.Items[0].Quantity = dec("0")

	_, err := f.svc.AddOrder(context.Background(), in)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Details["email"] == "" || ve.Details["items[0].quantity"] == "" {
		t.Fatalf("unexpected details %v", ve.Details)
	}
	if f.store.writes != 0 {
		t.Fatalf("expected no writes, got %d", f.store.writes)
	}

	in = validAddInput()
	in.Items = nil
	if _, err := f.svc.AddOrder(context.Background(), in); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for empty items, got %v", err)
	}
}

func TestAddOrder_UnknownWilayaChargesNoFee(t *testing.T) {
	f := newFixture()
	in := validAddInput()
	in.Wilaya = "Tamanrasset"

	receipt, err := f.svc.AddOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if !receipt.Order.DeliveryFee.IsZero() || !receipt.Order.TotalPrice.Equal(receipt.Subtotal) {
		t.Fatalf("expected zero fee, got fee=%s total=%s", receipt.Order.DeliveryFee, receipt.Order.TotalPrice)
	}
	if !strings.Contains(f.logs.String(), "not found, delivery fee 0") {
		t.Fatalf("expected fee fallback to be logged, logs=%s", f.logs.String())
	}
}

func TestAddOrder_VerificationMismatchOnlyWarns(t *testing.T) {
	f := newFixture()
	in := validAddInput()
	in.Verification = &PricingVerification{
		Subtotal: decimal.NewNullDecimal(dec("1")),
		Total:    decimal.NewNullDecimal(dec("4750.005")),
	}

	receipt, err := f.svc.AddOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if !receipt.Order.TotalPrice.Equal(dec("4750")) {
		t.Fatalf("server price must win, got %s", receipt.Order.TotalPrice)
	}
	logs := f.logs.String()
	if !strings.Contains(logs, "pricing mismatch field=subtotal") {
		t.Fatalf("expected subtotal warning, logs=%s", logs)
	}
	if strings.Contains(logs, "pricing mismatch field=total") {
		t.Fatalf("total within tolerance should not warn, logs=%s", logs)
	}
}

func TestAddOrder_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("no admins online")

	receipt, err := f.svc.AddOrder(context.Background(), validAddInput())
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if f.store.orderCount() != 1 || receipt.Order.ID == 0 {
		t.Fatalf("order should be committed")
	}
	if !strings.Contains(f.logs.String(), "notify admin order_id=") {
		t.Fatalf("expected push failure to be logged")
	}
}

func TestCalculatePricing_MatchesCommit(t *testing.T) {
	f := newFixture()
	in := validAddInput()

	preview, err := f.svc.CalculatePricing(context.Background(), PreviewInput{Items: in.Items})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	receipt, err := f.svc.AddOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	if !preview.Subtotal.Sub(receipt.Subtotal).Abs().LessThanOrEqual(dec("0.01")) {
		t.Fatalf("preview %s and commit %s disagree", preview.Subtotal, receipt.Subtotal)
	}
	if len(preview.DeliveryOptions) != 2 {
		t.Fatalf("expected every wilaya, got %d", len(preview.DeliveryOptions))
	}
	if !preview.DeliveryOptions[1].TotalWithDelivery.Equal(preview.Subtotal.Add(dec("600"))) {
		t.Fatalf("unexpected Oran total %s", preview.DeliveryOptions[1].TotalWithDelivery)
	}
	if !preview.TotalSavings.Equal(dec("1500")) {
		t.Fatalf("unexpected savings %s", preview.TotalSavings)
	}
}

func TestCalculatePricing_FallbackResolvesBareVariantID(t *testing.T) {
	f := newFixture()

	preview, err := f.svc.CalculatePricing(context.Background(), PreviewInput{Items: []ItemInput{{ProductID: 31, Quantity: dec("2")}}})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview.Lines) != 1 || preview.Lines[0].DisplayName != "Couscous - 5kg" {
		t.Fatalf("unexpected lines %+v", preview.Lines)
	}
}

func TestCalculatePricing_ReportsMissingIDs(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CalculatePricing(context.Background(), PreviewInput{Items: []ItemInput{
		{ProductID: 77, Quantity: dec("1")},
		{ProductID: 78, Quantity: dec("1")},
	}})
	var pnf *domain.ProductsNotFoundError
	if !errors.As(err, &pnf) || len(pnf.IDs) != 2 {
		t.Fatalf("expected both ids reported, got %v", err)
	}
}

func TestCalculatePricing_MeasureUnitIgnoresThreshold(t *testing.T) {
	f := newFixture()

	preview, err := f.svc.CalculatePricing(context.Background(), PreviewInput{Items: []ItemInput{{ProductID: 9, Quantity: dec("2.5")}}})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Lines[0].UsedSpecialPricing || !preview.Subtotal.Equal(dec("625")) {
		t.Fatalf("unexpected line %+v", preview.Lines[0])
	}
}

func seedOrder(f *fixture, status domain.OrderStatus) int64 {
	return f.store.seed(domain.Order{
		Status:      status,
		FullName:    "Old Name",
		Email:       "old@example.com",
		Phone:       "0550000000",
		Wilaya:      "Alger",
		Address:     "old address",
		DeliveryFee: dec("400"),
		TotalPrice:  dec("760"),
	}, []domain.OrderItem{
		{ProductID: 12, Quantity: dec("2"), UnitPrice: dec("180")},
	})
}

func validModifyInput() ModifyInput {
	return ModifyInput{
		FullName: "New Name",
		Email:    "new@example.com",
		Phone:    "0661000000",
		Wilaya:   "Oran",
		Address:  "new address",
	}
}

func TestModify_KeepsItemsAndRecomputesFee(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusConfirmed)

	o, err := f.svc.Modify(context.Background(), id, validModifyInput())
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if o.FullName != "New Name" || o.Wilaya != "Oran" {
		t.Fatalf("fields not updated: %+v", o)
	}
	if !o.TotalPrice.Equal(dec("960")) {
		t.Fatalf("expected 2x180 + 600, got %s", o.TotalPrice)
	}
	if len(o.Items) != 1 || !o.Items[0].UnitPrice.Equal(dec("180")) {
		t.Fatalf("items should be kept, got %+v", o.Items)
	}
}

func TestModify_ReplacesItemsAtCurrentPrices(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusPending)
	in := validModifyInput()
	in.Items = []ItemInput{{ProductID: 5, Quantity: dec("5")}}

	o, err := f.svc.Modify(context.Background(), id, in)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].ProductID != 5 || !o.Items[0].UnitPrice.Equal(dec("700")) {
		t.Fatalf("unexpected items %+v", o.Items)
	}
	if !o.TotalPrice.Equal(dec("4100")) {
		t.Fatalf("expected 3500 + 600, got %s", o.TotalPrice)
	}
	if f.store.itemCount() != 1 {
		t.Fatalf("old items should be replaced, have %d", f.store.itemCount())
	}
}

func TestModify_TerminalStatesAreImmutable(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.StatusDelivered, domain.StatusCancelled} {
		t.Run(status.Code(), func(t *testing.T) {
			f := newFixture()
			id := seedOrder(f, status)
			before, _ := f.svc.Get(context.Background(), id)

			in := validModifyInput()
			in.Items = []ItemInput{{ProductID: 5, Quantity: dec("1")}}
			_, err := f.svc.Modify(context.Background(), id, in)
			if !errors.Is(err, domain.ErrTerminalState) {
				t.Fatalf("expected terminal state error, got %v", err)
			}
			if f.store.writes != 0 {
				t.Fatalf("expected no writes, got %d", f.store.writes)
			}
			after, _ := f.svc.Get(context.Background(), id)
			if after.FullName != before.FullName || !after.TotalPrice.Equal(before.TotalPrice) || len(after.Items) != len(before.Items) {
				t.Fatalf("order changed: before=%+v after=%+v", before, after)
			}
		})
	}
}

func TestModify_UnknownWilayaIsValidationError(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusPending)
	in := validModifyInput()
	in.Wilaya = "Atlantis"

	_, err := f.svc.Modify(context.Background(), id, in)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Details["wilaya"] == "" {
		t.Fatalf("expected wilaya validation error, got %v", err)
	}
}

func TestModify_MissingOrder(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Modify(context.Background(), 99, validModifyInput()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStatus_AcceptsLabelsAndCodes(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusDelivered)

	o, err := f.svc.UpdateStatus(context.Background(), id, "ملغى")
	if err != nil {
		t.Fatalf("update by label: %v", err)
	}
	if o.Status != domain.StatusCancelled {
		t.Fatalf("unexpected status %s", o.Status)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), id, "CONFIRMED"); err != nil {
		t.Fatalf("update by code: %v", err)
	}

	var ve *domain.ValidationError
	if _, err := f.svc.UpdateStatus(context.Background(), id, "shipped"); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestList_Paginates(t *testing.T) {
	f := newFixture()
	for i := 0; i < 12; i++ {
		seedOrder(f, domain.StatusPending)
	}
	seedOrder(f, domain.StatusConfirmed)

	page, err := f.svc.List(context.Background(), ListQuery{Page: 2, Limit: 5, Status: "في الانتظار"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := Pagination{Page: 2, Limit: 5, Total: 12, TotalPages: 3}
	if page.Pagination != want {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}
	if len(page.Orders) != 5 {
		t.Fatalf("unexpected page size %d", len(page.Orders))
	}

	page, err = f.svc.List(context.Background(), ListQuery{Page: 0, Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != defaultPageSize {
		t.Fatalf("expected clamped paging, got %+v", page.Pagination)
	}

	var ve *domain.ValidationError
	if _, err := f.svc.List(context.Background(), ListQuery{Status: "lost"}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusPending)

	if err := f.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAddOrder_RejectsQuantitiesTheItemsTableCannotHold(t *testing.T) {
	cases := map[string][]ItemInput{
		"too many decimals": {
			{ProductID: 9, Quantity: dec("1.2345")},
			{ProductID: 12, Quantity: dec("0.0004")},
		},
		"above column range": {
			{ProductID: 12, Quantity: dec("99999999999")},
		},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			in := validAddInput()
			in.Items = items

			_, err := f.svc.AddOrder(context.Background(), in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			for i := range items {
				if ve.Details[fmt.Sprintf("items[%d].quantity", i)] == "" {
					t.Fatalf("items[%d].quantity not reported: %v", i, ve.Details)
				}
			}
			if f.store.writes != 0 || f.store.orderCount() != 0 {
				t.Fatalf("expected nothing stored, writes=%d orders=%d", f.store.writes, f.store.orderCount())
			}
		})
	}
}

func TestAddOrder_RejectsMergedQuantityAndTotalOverflow(t *testing.T) {
	cases := map[string][]ItemInput{
		"merged quantity": {
			{ProductID: 9, Quantity: dec("600000000")},
			{ProductID: 9, Quantity: dec("600000000")},
		},
		"order total": {
			{ProductID: 31, ParentProductID: int64Ptr(12), Quantity: dec("999999999")},
		},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			in := validAddInput()
			in.Items = items

			_, err := f.svc.AddOrder(context.Background(), in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Details["items"] == "" {
				t.Fatalf("expected items validation error, got %v", err)
			}
			if f.store.writes != 0 || f.store.orderCount() != 0 {
				t.Fatalf("expected nothing stored, writes=%d orders=%d", f.store.writes, f.store.orderCount())
			}
		})
	}
}

func TestAddOrder_FractionalQuantityTotalMatchesStoredItems(t *testing.T) {
	f := newFixture()
	in := validAddInput()
	in.Items = []ItemInput{
		{ProductID: 12, Quantity: dec("1.235")},
		{ProductID: 9, Quantity: dec("0.5")},
	}

	receipt, err := f.svc.AddOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	// 180 x 1.235 + 250 x 0.5 + 400
	if !receipt.Order.TotalPrice.Equal(dec("747.30")) {
		t.Fatalf("unexpected total %s", receipt.Order.TotalPrice)
	}

	stored, err := f.svc.Get(context.Background(), receipt.Order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := domain.ItemsSubtotal(stored.Items).Add(stored.DeliveryFee); !got.Equal(stored.TotalPrice) {
		t.Fatalf("stored items %s + fee do not match total %s", got, stored.TotalPrice)
	}
}

func TestCalculatePricing_RejectsExcessQuantityScale(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CalculatePricing(context.Background(), PreviewInput{Items: []ItemInput{{ProductID: 9, Quantity: dec("2.0001")}}})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Details["items[0].quantity"] == "" {
		t.Fatalf("expected quantity validation error, got %v", err)
	}
}

func TestModify_RejectsQuantityScaleBeforeLocking(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusPending)
	in := validModifyInput()
	in.Items = []ItemInput{{ProductID: 9, Quantity: dec("1.0005")}}

	_, err := f.svc.Modify(context.Background(), id, in)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Details["items[0].quantity"] == "" {
		t.Fatalf("expected quantity validation error, got %v", err)
	}
	if f.store.writes != 0 {
		t.Fatalf("expected no writes, got %d", f.store.writes)
	}
}

func TestModify_ReturnsItemsNamedLikeGet(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, domain.StatusPending)
	in := validModifyInput()
	in.Items = []ItemInput{{ProductID: 31, ParentProductID: int64Ptr(12), Quantity: dec("2")}}

	o, err := f.svc.Modify(context.Background(), id, in)
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(o.Items) != 1 || o.Items[0].ProductName != "Couscous" || o.Items[0].VariantTitle != "5kg" {
		t.Fatalf("unexpected item names %+v", o.Items)
	}

	stored, err := f.svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Items[0].ProductName != o.Items[0].ProductName || stored.Items[0].VariantTitle != o.Items[0].VariantTitle {
		t.Fatalf("modify returned %+v, get returned %+v", o.Items[0], stored.Items[0])
	}
}
