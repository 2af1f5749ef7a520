package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"github.com/yourusername/invoice-desk/store"
)

var errCounterMoved = errors.New("invoice counter changed concurrently")

// Allocation is one issued invoice number.
type Allocation struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Sequence      int64  `json:"-"`
}

// Allocator hands out invoice numbers from the persisted counter.
// The counter holds the last issued number and never decreases.
type Allocator interface {
	// Current returns the last issued number, or the floor if none was issued.
	Current(ctx context.Context) (int64, error)
	// PeekNext returns the number the next allocation would use. It never writes.
	PeekNext(ctx context.Context) (int64, error)
	AllocateOne(ctx context.Context) (*Allocation, error)
	// AllocateBatch allocates n numbers one at a time, calling each after every
	// allocation is committed. It stops at the first error.
	AllocateBatch(ctx context.Context, n int, each func(i int, allocation *Allocation) error) error
	SetCounter(ctx context.Context, value int64) (int64, error)
}

type CounterAllocator struct {
	settings   store.SettingsRepository
	prefix     string
	floor      int64
	newBackOff func() backoff.BackOff
}

func NewAllocator(settings store.SettingsRepository, prefix string, floor int64) *CounterAllocator {
	return &CounterAllocator{
		settings:   settings,
		prefix:     prefix,
		floor:      floor,
		newBackOff: defaultCounterBackOff,
	}
}

func defaultCounterBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return b
}

// load returns the counter value, its raw stored form and whether the row exists.
func (a *CounterAllocator) load(ctx context.Context) (int64, string, bool, error) {
	setting, err := a.settings.Get(ctx, models.SettingLastInvoiceNumber)
	if err != nil {
		if ierr.IsNotFound(err) {
			return a.floor, "", false, nil
		}
		return 0, "", false, err
	}
	value, err := strconv.ParseInt(setting.Value, 10, 64)
	if err != nil {
		return 0, "", false, ierr.WithError(err).
			WithHint("Stored invoice counter is not a number").
			Mark(ierr.ErrSystem)
	}
	return value, setting.Value, true, nil
}

func (a *CounterAllocator) Current(ctx context.Context) (int64, error) {
	value, _, _, err := a.load(ctx)
	return value, err
}

func (a *CounterAllocator) PeekNext(ctx context.Context) (int64, error) {
	value, err := a.Current(ctx)
	if err != nil {
		return 0, err
	}
	return value + 1, nil
}

func (a *CounterAllocator) AllocateOne(ctx context.Context) (*Allocation, error) {
	next, err := a.advance(ctx, func(current int64) (int64, error) {
		return current + 1, nil
	})
	if err != nil {
		return nil, err
	}
	return &Allocation{
		InvoiceNumber: models.FormatInvoiceNumber(a.prefix, next),
		Sequence:      next,
	}, nil
}

func (a *CounterAllocator) AllocateBatch(ctx context.Context, n int, each func(i int, allocation *Allocation) error) error {
	for i := 0; i < n; i++ {
		allocation, err := a.AllocateOne(ctx)
		if err != nil {
			return ierr.WithError(err).
				WithMessagef("allocation stopped after %d of %d numbers", i, n).
				Error()
		}
		if err := each(i, allocation); err != nil {
			return err
		}
	}
	return nil
}

func (a *CounterAllocator) SetCounter(ctx context.Context, value int64) (int64, error) {
	if value < a.floor {
		return 0, ierr.NewError("counter below floor").
			WithHintf("Invoice number cannot be less than %d", a.floor).
			WithReportableDetails(map[string]any{"minimum": a.floor}).
			Mark(ierr.ErrValidation)
	}
	return a.advance(ctx, func(current int64) (int64, error) {
		if value < current {
			return 0, ierr.NewError("counter cannot move backwards").
				WithHintf("Invoice number cannot be less than the current number %d", current).
				WithReportableDetails(map[string]any{"current": current}).
				Mark(ierr.ErrValidation)
		}
		return value, nil
	})
}

// advance moves the counter to fn(current) with compare-and-swap, retrying
// when another writer got there first.
func (a *CounterAllocator) advance(ctx context.Context, fn func(current int64) (int64, error)) (int64, error) {
	var result int64
	operation := func() error {
		current, raw, exists, err := a.load(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		next, err := fn(current)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !exists {
			setting, err := a.settings.InitIfAbsent(ctx, models.SettingLastInvoiceNumber, strconv.FormatInt(current, 10))
			if err != nil {
				return backoff.Permanent(err)
			}
			raw = strconv.FormatInt(current, 10)
			if setting.Value != raw {
				return errCounterMoved
			}
		}
		swapped, err := a.settings.CompareAndSwap(ctx, models.SettingLastInvoiceNumber, raw, strconv.FormatInt(next, 10))
		if err != nil {
			return backoff.Permanent(err)
		}
		if !swapped {
			return errCounterMoved
		}
		result = next
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(a.newBackOff(), ctx)); err != nil {
		if errors.Is(err, errCounterMoved) {
			return 0, ierr.WithError(err).
				WithHint("Invoice counter is busy, please retry").
				Mark(ierr.ErrVersionConflict)
		}
		return 0, err
	}
	return result, nil
}
