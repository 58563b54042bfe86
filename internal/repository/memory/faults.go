package memory

import "sync"

// Faults injects failures into named store operations. Operation names:
// create_equipment, create_delivery_note, insert_checkout,
// update_availability, update_stock, update_checkout.
type Faults struct {
	mu    sync.Mutex
	rules map[string]*faultRule
}

type faultRule struct {
	nth   int
	calls int
	err   error
}

func NewFaults() *Faults {
	return &Faults{rules: make(map[string]*faultRule)}
}

// FailOn makes the nth call (1-based) of op fail with err.
func (f *Faults) FailOn(op string, nth int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[op] = &faultRule{nth: nth, err: err}
}

func (f *Faults) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]*faultRule)
}

func (f *Faults) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[op]
	if !ok {
		return nil
	}
	r.calls++
	if r.calls == r.nth {
		return r.err
	}
	return nil
}
