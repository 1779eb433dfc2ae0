package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealfee/backend/internal/domain/attendance"
	"github.com/mealfee/backend/internal/domain/billing"
	"github.com/mealfee/backend/internal/domain/shared"
)

type memSettingRepo struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*billing.PaymentSetting
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{settings: make(map[uuid.UUID]*billing.PaymentSetting)}
}

func (r *memSettingRepo) Save(ctx context.Context, s *billing.PaymentSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.settings[s.ID] = &cp
	return nil
}

func (r *memSettingRepo) SaveWithLock(ctx context.Context, s *billing.PaymentSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.settings[s.ID]
	if !ok || stored.Version != s.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	cp := *s
	r.settings[s.ID] = &cp
	return nil
}

func (r *memSettingRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSettingRepo) FindBySchool(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) ([]*billing.PaymentSetting, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.PaymentSetting
	for _, s := range r.settings {
		if s.SchoolID == schoolID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memSettingRepo) FindActiveForMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int) ([]*billing.PaymentSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.PaymentSetting
	for _, s := range r.settings {
		if s.SchoolID == schoolID && s.IsActive && s.CoversMonth(monthNo, year) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSettingRepo) ExistsForAcademicYear(ctx context.Context, academicYearID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.AcademicYearID == academicYearID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSettingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.settings, id)
	return nil
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice

	// missStudentMonthOnce makes the next FindByStudentMonth miss even when a
	// row exists, simulating a concurrent insert landing after the check
	missStudentMonthOnce bool
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *memInvoiceRepo) clone(inv *billing.Invoice) *billing.Invoice {
	cp := *inv
	cp.PaymentEntries = append(billing.PaymentEntries{}, inv.PaymentEntries...)
	return &cp
}

func (r *memInvoiceRepo) Save(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invoices {
		if existing.ID != inv.ID &&
			existing.SchoolID == inv.SchoolID && existing.StudentID == inv.StudentID &&
			existing.Year == inv.Year && existing.MonthNo == inv.MonthNo {
			return shared.ErrAlreadyExists
		}
	}
	r.invoices[inv.ID] = r.clone(inv)
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[inv.ID]
	if !ok || stored.Version != inv.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.invoices[inv.ID] = r.clone(inv)
	return nil
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.clone(inv), nil
}

func (r *memInvoiceRepo) FindByCode(ctx context.Context, code string) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.InvoiceCode == code {
			return r.clone(inv), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) FindByStudentMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missStudentMonthOnce {
		r.missStudentMonthOnce = false
		return nil, shared.ErrNotFound
	}
	for _, inv := range r.invoices {
		if inv.SchoolID == schoolID && inv.StudentID == studentID && inv.Year == year && inv.MonthNo == monthNo {
			return r.clone(inv), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) FindByMonth(ctx context.Context, schoolID uuid.UUID, year, monthNo int, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.SchoolID == schoolID && inv.Year == year && inv.MonthNo == monthNo {
			out = append(out, r.clone(inv))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memInvoiceRepo) FindUnpaidByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.SchoolID == schoolID && inv.StudentID == studentID && !inv.IsSettled() {
			out = append(out, r.clone(inv))
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) ExistsPaidForSetting(ctx context.Context, settingID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.PaymentSettingID == settingID && inv.PaidAmount().IsPositive() {
			return true, nil
		}
	}
	return false, nil
}

type memLeaveRepo struct {
	mu      sync.Mutex
	records []*attendance.LeaveRecord
}

func newMemLeaveRepo() *memLeaveRepo { return &memLeaveRepo{} }

func (r *memLeaveRepo) Save(ctx context.Context, record *attendance.LeaveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *memLeaveRepo) FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID, filter shared.Filter) ([]*attendance.LeaveRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*attendance.LeaveRecord
	for _, rec := range r.records {
		if rec.SchoolID == schoolID && rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memLeaveRepo) FindByStudentMonth(ctx context.Context, schoolID, studentID uuid.UUID, year, monthNo int) ([]*attendance.LeaveRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*attendance.LeaveRecord
	for _, rec := range r.records {
		if rec.SchoolID == schoolID && rec.StudentID == studentID && rec.OverlapsMonth(year, monthNo) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memIdemStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdemStore() *memIdemStore { return &memIdemStore{keys: make(map[string]bool)} }

func (s *memIdemStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdemStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdemStore) Close() error { return nil }

// fakeGateway is a scriptable PaymentGateway for callback tests
type fakeGateway struct {
	verifyErr   error
	callback    *billing.PaymentCallback
	linkResp    *billing.CreatePaymentLinkResponse
	linkErr     error
	lastLinkReq *billing.CreatePaymentLinkRequest
}

func (g *fakeGateway) Name() string { return "fakegw" }

func (g *fakeGateway) CreatePaymentLink(ctx context.Context, req billing.CreatePaymentLinkRequest) (*billing.CreatePaymentLinkResponse, error) {
	g.lastLinkReq = &req
	if g.linkErr != nil {
		return nil, g.linkErr
	}
	return g.linkResp, nil
}

func (g *fakeGateway) VerifyCallback(params map[string]string) (*billing.PaymentCallback, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.callback, nil
}

func (g *fakeGateway) GenerateCallbackResponse(success bool) string {
	if success {
		return `{"return":"SUCCESS"}`
	}
	return `{"return":"FAIL"}`
}
