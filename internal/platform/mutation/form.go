package mutation

import (
	"context"
	stderrors "errors"
	"net/url"
	"sync"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// Form is the submitted form. Reset clears its fields after a successful
// submission.
type Form interface {
	Values() url.Values
	Reset()
}

// FormOptions configures a FormMutation.
type FormOptions[T, R any] struct {
	Mutate    Func[T, R]
	OnSuccess func(R)
	OnError   func(error)
	// OnChange receives a snapshot after every state change.
	OnChange func(FormState[R])
	// Translator renders extraction and validation messages.
	Translator i18n.Translator
	// PreventResetOnSubmit keeps the form fields after a successful submission.
	PreventResetOnSubmit bool
}

// FormState is a snapshot of a form mutation.
type FormState[R any] struct {
	Loading bool
	Data    *R
	Success bool
	Message string
	Issues  *response.Issues
}

// FormMutation drives form submissions through a mutation and keeps the
// success flag, message and issues of the latest one.
type FormMutation[T, R any] struct {
	opts     FormOptions[T, R]
	mutation *Mutation[T, R]

	// guarded by mutation.mu
	success bool
	message string
	issues  *response.Issues
}

// NewForm returns an idle form mutation.
func NewForm[T, R any](opts FormOptions[T, R]) *FormMutation[T, R] {
	f := &FormMutation[T, R]{opts: opts}
	f.mutation = New(Options[T, R]{
		Mutate:    opts.Mutate,
		OnSuccess: opts.OnSuccess,
		OnError:   opts.OnError,
	})
	if opts.OnChange != nil {
		f.mutation.opts.OnChange = func(State[R]) { opts.OnChange(f.State()) }
	}
	return f
}

// Submit resets the state, decodes and validates the form values into T and
// runs the mutation. Failures end in the returned state rather than an error.
// Any submission still in flight is cancelled and can no longer write state.
func (f *FormMutation[T, R]) Submit(ctx context.Context, form Form) FormState[R] {
	ctx, gen, cancel := f.mutation.start(ctx, f.clearLocked)
	defer cancel()
	f.mutation.notify()

	var values url.Values
	if form != nil {
		values = form.Values()
	}
	input, err := validation.ExtractFormData[T](f.opts.Translator, values)
	if err == nil {
		_, err = f.mutation.run(ctx, gen, input)
	}

	if err != nil {
		f.mutation.update(gen, func() { f.failLocked(err) })
		return f.State()
	}
	if f.mutation.update(gen, func() { f.success = true }) && !f.opts.PreventResetOnSubmit && form != nil {
		form.Reset()
	}
	return f.State()
}

// Reset cancels any submission in flight and clears the whole state.
func (f *FormMutation[T, R]) Reset() {
	f.mutation.mu.Lock()
	f.mutation.resetLocked()
	f.clearLocked()
	f.mutation.mu.Unlock()
	f.mutation.notify()
}

// State returns a snapshot of the current state.
func (f *FormMutation[T, R]) State() FormState[R] {
	f.mutation.mu.Lock()
	defer f.mutation.mu.Unlock()
	base := f.mutation.stateLocked()
	return FormState[R]{
		Loading: base.Loading,
		Data:    base.Data,
		Success: f.success,
		Message: f.message,
		Issues:  f.issues.Clone(),
	}
}

func (f *FormMutation[T, R]) clearLocked() {
	f.success = false
	f.message = ""
	f.issues = nil
}

// failLocked records err. Validation errors and transport errors carry a
// message and issues; anything else only clears the success flag.
func (f *FormMutation[T, R]) failLocked(err error) {
	f.success = false

	var invalid *validation.Error
	if stderrors.As(err, &invalid) {
		f.message = invalid.Message
		f.issues = invalid.Issues.Clone()
		return
	}
	var transport *apperrors.Error
	if stderrors.As(err, &transport) {
		f.message = transport.Message
		if !transport.Issues.Empty() {
			f.issues = transport.Issues.Clone()
		}
	}
}

// Values is an in-memory Form.
type Values struct {
	mu     sync.Mutex
	values url.Values
}

// NewValues returns a form holding a copy of values.
func NewValues(values url.Values) *Values {
	return &Values{values: cloneValues(values)}
}

// Values returns a copy of the current fields.
func (v *Values) Values() url.Values {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneValues(v.values)
}

// Reset clears every field.
func (v *Values) Reset() {
	v.mu.Lock()
	v.values = url.Values{}
	v.mu.Unlock()
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}
	return out
}
