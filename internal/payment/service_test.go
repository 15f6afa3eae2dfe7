package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/hoangnv/firstdate-backend/internal/scheduling"
)

type fakeRepo struct {
	transactions map[string]*Transaction
	nextID       int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{transactions: make(map[string]*Transaction), nextID: 1}
}

func (r *fakeRepo) Create(_ context.Context, txn *Transaction) error {
	txn.ID = r.nextID
	r.nextID++
	stored := *txn
	r.transactions[txn.TxnRef] = &stored
	return nil
}

func (r *fakeRepo) GetByTxnRef(_ context.Context, ref string) (*Transaction, error) {
	txn, ok := r.transactions[ref]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	copy := *txn
	return &copy, nil
}

func (r *fakeRepo) SettleIfPending(_ context.Context, ref string, status TransactionStatus, code string) (bool, error) {
	txn, ok := r.transactions[ref]
	if !ok || txn.Status != StatusPending {
		return false, nil
	}
	txn.Status = status
	txn.ResponseCode = &code
	return true, nil
}

type fakeBookings struct {
	confirmed []int64
}

func (f *fakeBookings) GetBooking(_ context.Context, bookingID, userID int64) (*scheduling.Booking, error) {
	if bookingID != 10 {
		return nil, scheduling.ErrBookingNotFound
	}
	return &scheduling.Booking{ID: bookingID, RequesterID: userID, RecipientID: userID + 1}, nil
}

func (f *fakeBookings) ConfirmBooking(_ context.Context, bookingID, userID int64) (*scheduling.Booking, error) {
	f.confirmed = append(f.confirmed, bookingID)
	return &scheduling.Booking{ID: bookingID}, nil
}

const testSecret = "test-hash-secret"

func newTestService() (*service, *fakeRepo, *fakeBookings) {
	repo := newFakeRepo()
	bookings := &fakeBookings{}
	svc := NewService(repo, bookings, Gateway{
		TmnCode:    "TESTCODE",
		HashSecret: testSecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://example.com/payment-result",
	}).(*service)
	return svc, repo, bookings
}

// pendingTransaction creates a transaction and returns a signed callback for it
func pendingTransaction(t *testing.T, svc *service, repo *fakeRepo, responseCode string) (string, map[string]string) {
	t.Helper()

	redirect, err := svc.CreatePaymentURL(context.Background(), 10, 1, 200000, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreatePaymentURL: %v", err)
	}
	parsed, err := url.Parse(redirect)
	if err != nil {
		t.Fatal(err)
	}
	ref := parsed.Query().Get("vnp_TxnRef")
	if ref == "" {
		t.Fatal("redirect URL missing vnp_TxnRef")
	}

	params := map[string]string{
		"vnp_TxnRef":       ref,
		"vnp_ResponseCode": responseCode,
		"vnp_Amount":       "20000000",
		"vnp_TmnCode":      "TESTCODE",
	}
	params["vnp_SecureHash"] = signParams(params, testSecret)
	return ref, params
}

func TestCreatePaymentURL(t *testing.T) {
	svc, repo, _ := newTestService()

	redirect, err := svc.CreatePaymentURL(context.Background(), 10, 1, 200000, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreatePaymentURL: %v", err)
	}

	parsed, err := url.Parse(redirect)
	if err != nil {
		t.Fatal(err)
	}
	query := parsed.Query()
	if query.Get("vnp_SecureHash") == "" {
		t.Error("redirect URL must carry a signature")
	}
	if got := query.Get("vnp_Amount"); got != "20000000" {
		t.Errorf("vnp_Amount = %s, want amount in minor units", got)
	}

	ref := query.Get("vnp_TxnRef")
	if !strings.HasPrefix(ref, "VNP") {
		t.Errorf("txn ref %q should carry the VNP prefix", ref)
	}
	txn, err := repo.GetByTxnRef(context.Background(), ref)
	if err != nil {
		t.Fatalf("transaction not persisted: %v", err)
	}
	if txn.Status != StatusPending {
		t.Errorf("new transaction status = %s, want %s", txn.Status, StatusPending)
	}
}

func TestCreatePaymentURLUniqueRefs(t *testing.T) {
	svc, _, _ := newTestService()

	refs := make(map[string]bool)
	for i := 0; i < 20; i++ {
		redirect, err := svc.CreatePaymentURL(context.Background(), 10, 1, 200000, "10.0.0.1")
		if err != nil {
			t.Fatal(err)
		}
		parsed, _ := url.Parse(redirect)
		ref := parsed.Query().Get("vnp_TxnRef")
		if refs[ref] {
			t.Fatalf("duplicate txn ref %q", ref)
		}
		refs[ref] = true
	}
}

func TestCreatePaymentURLValidation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.CreatePaymentURL(context.Background(), 10, 1, 0, "10.0.0.1"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.CreatePaymentURL(context.Background(), 99, 1, 200000, "10.0.0.1"); !errors.Is(err, scheduling.ErrBookingNotFound) {
		t.Errorf("unknown booking: err = %v, want ErrBookingNotFound", err)
	}
}

func TestProcessCallbackSuccess(t *testing.T) {
	svc, repo, bookings := newTestService()
	ref, params := pendingTransaction(t, svc, repo, "00")

	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, OutcomeSuccess)
	}

	txn, _ := repo.GetByTxnRef(context.Background(), ref)
	if txn.Status != StatusSuccess {
		t.Errorf("transaction status = %s, want %s", txn.Status, StatusSuccess)
	}
	if len(bookings.confirmed) != 1 || bookings.confirmed[0] != 10 {
		t.Errorf("expected one booking confirmation for booking 10, got %v", bookings.confirmed)
	}
}

func TestProcessCallbackReplay(t *testing.T) {
	svc, repo, bookings := newTestService()
	_, params := pendingTransaction(t, svc, repo, "00")

	if outcome, _ := svc.ProcessCallback(context.Background(), params); outcome != OutcomeSuccess {
		t.Fatalf("first delivery outcome = %s", outcome)
	}
	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}

	if outcome != OutcomeAlreadyProcessed {
		t.Errorf("replay outcome = %s, want %s", outcome, OutcomeAlreadyProcessed)
	}
	if len(bookings.confirmed) != 1 {
		t.Errorf("replay must not re-confirm the booking, confirmations = %d", len(bookings.confirmed))
	}
}

func TestProcessCallbackTamperedParameter(t *testing.T) {
	svc, repo, bookings := newTestService()
	ref, params := pendingTransaction(t, svc, repo, "00")
	params["vnp_Amount"] = "1"

	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeInvalidSignature {
		t.Errorf("outcome = %s, want %s", outcome, OutcomeInvalidSignature)
	}

	txn, _ := repo.GetByTxnRef(context.Background(), ref)
	if txn.Status != StatusPending {
		t.Errorf("a rejected callback must not mutate state, status = %s", txn.Status)
	}
	if len(bookings.confirmed) != 0 {
		t.Error("a rejected callback must not confirm the booking")
	}
}

func TestProcessCallbackUnknownReference(t *testing.T) {
	svc, _, _ := newTestService()

	params := map[string]string{"vnp_TxnRef": "VNPdoesnotexist", "vnp_ResponseCode": "00"}
	params["vnp_SecureHash"] = signParams(params, testSecret)

	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeOrderNotFound {
		t.Errorf("outcome = %s, want %s", outcome, OutcomeOrderNotFound)
	}
}

func TestProcessCallbackFailureCode(t *testing.T) {
	svc, repo, bookings := newTestService()
	ref, params := pendingTransaction(t, svc, repo, "24")

	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, a consumed failure callback is still processed", outcome)
	}

	txn, _ := repo.GetByTxnRef(context.Background(), ref)
	if txn.Status != StatusFailed {
		t.Errorf("transaction status = %s, want %s", txn.Status, StatusFailed)
	}
	if len(bookings.confirmed) != 0 {
		t.Error("a failed payment must not confirm the booking")
	}
}

func TestProcessCallbackIgnoresTransportFields(t *testing.T) {
	svc, repo, _ := newTestService()
	_, params := pendingTransaction(t, svc, repo, "00")

	// Fields excluded from signing may vary without breaking verification
	params["vnp_SecureHashType"] = "HMACSHA512"
	params["bookingId"] = "10"

	outcome, err := svc.ProcessCallback(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want %s", outcome, OutcomeSuccess)
	}
}
