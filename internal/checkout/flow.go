package checkout

import (
	"fmt"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
)

type Step int

const (
	StepDelivery Step = iota + 1
	StepPayment
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepDelivery:
		return "delivery"
	case StepPayment:
		return "payment"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for _, step := range []Step{StepDelivery, StepPayment, StepConfirmed} {
		if step.String() == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown checkout step %q", text)
}

// CommitFunc 驗證通過後由結帳流程呼叫，建立訂單
type CommitFunc func(customer model.CustomerInfo, payment model.PaymentCapture) error

// State 結帳流程目前狀態
// Payment 內卡號已遮蔽、不含CVV
type State struct {
	Open     bool                 `json:"open"`
	Step     Step                 `json:"step"`
	Customer model.CustomerInfo   `json:"customer"`
	Payment  model.PaymentCapture `json:"payment"`
	Errors   FieldErrors          `json:"errors"`
}

/*
Flow 兩步驟結帳流程
delivery -> payment -> confirmed
confirmed 之後經過 resetDelay 自動重置並關閉
手動 Close 會取消尚未觸發的重置
*/
type Flow struct {
	mu         sync.Mutex
	resetDelay time.Duration
	open       bool
	step       Step
	customer   model.CustomerInfo
	payment    model.PaymentCapture
	errors     FieldErrors
	timer      *time.Timer
	generation uint64
}

func NewFlow(resetDelay time.Duration) *Flow {
	return &Flow{
		resetDelay: resetDelay,
		step:       StepDelivery,
		errors:     FieldErrors{},
	}
}

// Open 開啟視窗
// 已完成購買時先取消待觸發的重置並開一張新表單
func (f *Flow) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == StepConfirmed {
		f.cancelTimer()
		f.reset()
	}
	f.open = true
}

// Close 關閉視窗
// 已完成購買時直接重置，並取消計時器，避免之後重置到重新使用中的表單
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelTimer()
	if f.step == StepConfirmed {
		f.reset()
		return
	}
	f.open = false
}

func (f *Flow) SetCustomer(c model.CustomerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepDelivery {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	f.customer = c
	for field, value := range customerFields(&f.customer) {
		if *value != "" {
			delete(f.errors, field)
		}
	}
	return nil
}

func (f *Flow) SetCustomerField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepDelivery {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	target, ok := customerFields(&f.customer)[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	*target = value
	delete(f.errors, field)
	return nil
}

// Advance delivery -> payment，所有欄位必填
func (f *Flow) Advance() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepDelivery {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	if errs := ValidateCustomer(f.customer); !errs.Empty() {
		f.errors = errs
		return ErrInvalidFields
	}
	f.errors = FieldErrors{}
	f.step = StepPayment
	return nil
}

func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPayment {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	f.step = StepDelivery
	return nil
}

// SetPaymentField 輸入時過濾，並清除該欄位的錯誤
func (f *Flow) SetPaymentField(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPayment {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	filtered, err := FilterPaymentInput(field, value)
	if err != nil {
		return fmt.Errorf("%w: %s", err, field)
	}
	target, err := paymentField(&f.payment, field)
	if err != nil {
		return fmt.Errorf("%w: %s", err, field)
	}
	*target = filtered
	delete(f.errors, field)
	return nil
}

// Submit 驗證付款資料，通過後呼叫 commit 並進入 confirmed
// 驗證失敗回傳 ErrInvalidFields，錯誤內容由 State().Errors 取得
func (f *Flow) Submit(commit CommitFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPayment {
		return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
	}
	if errs := ValidatePayment(f.payment); !errs.Empty() {
		f.errors = errs
		return ErrInvalidFields
	}

	if err := commit(f.customer, f.payment); err != nil {
		return fmt.Errorf("commit order failed: %w", err)
	}

	f.errors = FieldErrors{}
	f.step = StepConfirmed
	f.scheduleReset()
	return nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := make(FieldErrors, len(f.errors))
	for k, v := range f.errors {
		errs[k] = v
	}
	return State{
		Open:     f.open,
		Step:     f.step,
		Customer: f.customer,
		Payment: model.PaymentCapture{
			CardholderName: f.payment.CardholderName,
			CardNumber:     model.MaskCardNumber(f.payment.CardNumber),
			Expiry:         f.payment.Expiry,
		},
		Errors: errs,
	}
}

// 需持有 f.mu
func (f *Flow) scheduleReset() {
	f.cancelTimer()
	gen := f.generation
	f.timer = time.AfterFunc(f.resetDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		// 計時器已被取消或重新排程
		if gen != f.generation {
			return
		}
		f.timer = nil
		f.reset()
	})
}

// 需持有 f.mu
func (f *Flow) cancelTimer() {
	f.generation++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// 需持有 f.mu
func (f *Flow) reset() {
	f.open = false
	f.step = StepDelivery
	f.customer = model.CustomerInfo{}
	f.payment = model.PaymentCapture{}
	f.errors = FieldErrors{}
}
