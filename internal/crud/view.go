// Package crud implements the forecast editing view: it keeps one user's
// list of forecasts in sync with the remote document store and turns every
// outcome into a user-visible Message.
package crud

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/forecast-crud/internal/forecast"
	"github.com/i474232898/forecast-crud/internal/rtdb"
	"github.com/i474232898/forecast-crud/internal/session"
)

// DefaultResource is the resource name records are stored under.
const DefaultResource = "WeatherForecast"

// State of a view.
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the subset of the document store client a view needs.
type Store interface {
	Get(ctx context.Context, url string) (*rtdb.Response, error)
	Post(ctx context.Context, url string, body any) (*rtdb.Response, error)
	Put(ctx context.Context, url string, body any) (*rtdb.Response, error)
	Delete(ctx context.Context, url string) (*rtdb.Response, error)
}

// Option configures a View.
type Option func(*View)

// WithResource overrides the resource name.
func WithResource(resource string) Option {
	return func(v *View) {
		if resource != "" {
			v.resource = resource
		}
	}
}

// WithGenerator sets the sample data generator.
func WithGenerator(g *forecast.Generator) Option {
	return func(v *View) {
		if g != nil {
			v.gen = g
		}
	}
}

// WithLogger sets the logger messages are mirrored to.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(v *View) {
		if l != nil {
			v.log = l
		}
	}
}

// View holds one user's forecasts and the record being edited. Every
// operation performs at most one mutation round trip followed by a refresh,
// and reports its outcome as returned messages rather than errors.
//
// A View is not safe for concurrent use.
type View struct {
	store    Store
	baseURL  string
	resource string
	gen      *forecast.Generator
	log      *zap.SugaredLogger

	ref        rtdb.Ref
	state      State
	forecasts  []forecast.Record
	selected   *forecast.Record
	dialogOpen bool
	renders    int
	messages   []Message
}

// NewView creates an uninitialized view against the database at baseURL.
func NewView(store Store, baseURL string, opts ...Option) *View {
	v := &View{
		store:    store,
		baseURL:  baseURL,
		resource: DefaultResource,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.gen == nil {
		v.gen = forecast.NewGenerator(nil, nil)
	}
	return v
}

func (v *View) State() State { return v.state }

// Forecasts returns a copy of the displayed list.
func (v *View) Forecasts() []forecast.Record {
	out := make([]forecast.Record, len(v.forecasts))
	copy(out, v.forecasts)
	return out
}

// Selected returns the record being edited, or nil. Callers edit its fields
// in place before calling Save.
func (v *View) Selected() *forecast.Record { return v.selected }

// DialogOpen reports whether the edit dialog should be shown.
func (v *View) DialogOpen() bool { return v.dialogOpen }

// Renders counts successful list rebuilds.
func (v *View) Renders() int { return v.renders }

// Messages returns every message produced so far, oldest first.
func (v *View) Messages() []Message {
	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Session returns the session captured by Initialize.
func (v *View) Session() session.Session { return v.ref.Session }

// Initialize binds the view to the user in s and fetches their forecasts.
func (v *View) Initialize(ctx context.Context, s session.Session) []Message {
	ref, err := rtdb.NewRef(v.baseURL, v.resource, s)
	if err != nil {
		return v.emit(nil, errorf("Error initializing view: %v", err))
	}
	v.ref = ref
	v.state = StateLoaded
	v.log.Debugw("view initialized", "user", s.UserID, "resource", v.resource)
	return v.Refresh(ctx)
}

// OpenNew starts editing a fresh record with no key.
func (v *View) OpenNew() {
	v.selected = &forecast.Record{}
	v.dialogOpen = true
	if v.initialized() {
		v.state = StateEditing
	}
}

// Select starts editing a copy of the listed record with the given key.
func (v *View) Select(name string) []Message {
	for _, r := range v.forecasts {
		if r.Name == name {
			rec := r
			v.selected = &rec
			v.dialogOpen = true
			v.state = StateEditing
			return nil
		}
	}
	return v.emit(nil, errorf("No forecast with name %s", name))
}

// CloseDialog abandons the edit without saving.
func (v *View) CloseDialog() {
	v.dialogOpen = false
	if v.state == StateEditing {
		v.state = StateLoaded
	}
}

// GenerateSampleData fills the selected record with synthetic values. On
// failure the record is left unchanged.
func (v *View) GenerateSampleData() []Message {
	if err := v.gen.Fill(v.selected); err != nil {
		return v.emit(nil, errorf("Error generating data: %v", err))
	}
	return nil
}

// Save creates the selected record when it has no key and overwrites it
// otherwise, then refreshes the list and closes the dialog.
func (v *View) Save(ctx context.Context) []Message {
	if !v.initialized() {
		return v.emit(nil, errorf("Error saving data: view is not initialized"))
	}
	if v.selected == nil {
		return v.emit(nil, errorf("Error saving data: %v", forecast.ErrNoRecord))
	}

	var out []Message
	defer v.endEdit()

	rec := *v.selected
	if rec.IsNew() {
		resp, err := v.store.Post(ctx, v.ref.CollectionURL(), rec)
		if err != nil {
			return v.emit(out, errorf("Error saving data: %v", err))
		}
		if resp.OK() {
			name, err := rtdb.DecodePushResult(resp.Body)
			if err != nil {
				out = v.emit(out, errorf("Error saving data: %v", err))
			} else {
				out = v.emit(out, infof("Successfully added data with name %s", name))
				v.selected = nil
			}
		} else {
			out = v.emit(out, statusf(resp.StatusCode, "Add was not successful, server return status %d"))
		}
	} else {
		url, err := v.ref.ItemURL(rec.Name)
		if err != nil {
			return v.emit(out, errorf("Error saving data: %v", err))
		}
		resp, err := v.store.Put(ctx, url, rec)
		if err != nil {
			return v.emit(out, errorf("Error saving data: %v", err))
		}
		if resp.OK() {
			var updated forecast.Record
			if err := json.Unmarshal(resp.Body, &updated); err != nil {
				out = v.emit(out, errorf("Error saving data: decode updated record: %v", err))
			} else {
				if updated.Name == "" {
					updated.Name = rec.Name
				}
				out = v.emit(out, infof("Successfully updated forecast %s", updated))
			}
		} else {
			out = v.emit(out, statusf(resp.StatusCode, "Update was not successful, server return status %d"))
		}
	}

	return append(out, v.Refresh(ctx)...)
}

// Delete removes the selected record from the store and refreshes the list
// on success.
func (v *View) Delete(ctx context.Context) []Message {
	if !v.initialized() {
		return v.emit(nil, errorf("Error deleting data: view is not initialized"))
	}
	if v.selected == nil || v.selected.IsNew() {
		return v.emit(nil, errorf("Error deleting data: no saved forecast selected"))
	}
	defer v.endEdit()

	name := v.selected.Name
	url, err := v.ref.ItemURL(name)
	if err != nil {
		return v.emit(nil, errorf("Error deleting data: %v", err))
	}
	resp, err := v.store.Delete(ctx, url)
	if err != nil {
		return v.emit(nil, errorf("Error deleting data: %v", err))
	}
	if !resp.OK() {
		return v.emit(nil, statusf(resp.StatusCode, "Delete was not successful, server return status %d"))
	}

	out := v.emit(nil, infof("Successfully deleted data with name %s", name))
	v.selected = nil
	return append(out, v.Refresh(ctx)...)
}

// Refresh re-reads the whole collection and replaces the displayed list.
// On failure the previous list is kept.
func (v *View) Refresh(ctx context.Context) []Message {
	if !v.initialized() {
		return v.emit(nil, errorf("Error fetching data: view is not initialized"))
	}

	resp, err := v.store.Get(ctx, v.ref.CollectionURL())
	if err != nil {
		return v.emit(nil, errorf("Error fetching data: %v", err))
	}
	if !resp.OK() {
		return v.emit(nil, statusf(resp.StatusCode, "Fetch data was not successful, server return status %d"))
	}

	entries, err := rtdb.DecodeEntries(resp.Body)
	if err != nil {
		return v.emit(nil, errorf("Error fetching data: %v", err))
	}

	list := make([]forecast.Record, 0, len(entries))
	for _, e := range entries {
		var r forecast.Record
		if err := json.Unmarshal(e.Value, &r); err != nil {
			return v.emit(nil, errorf("Error fetching data: record %s: %v", e.Key, err))
		}
		r.Name = e.Key
		list = append(list, r)
	}

	v.forecasts = list
	v.renders++
	return v.emit(nil, infof("Successfully fetched %d forecasts", len(list)))
}

func (v *View) initialized() bool {
	return v.ref.BaseURL != ""
}

func (v *View) endEdit() {
	v.dialogOpen = false
	v.state = StateLoaded
}

func (v *View) emit(out []Message, m Message) []Message {
	v.messages = append(v.messages, m)
	if m.Severity == SeverityError {
		v.log.Errorw(m.Text, "user", v.ref.Session.UserID)
	} else {
		v.log.Infow(m.Text, "user", v.ref.Session.UserID, "status", m.StatusCode)
	}
	return append(out, m)
}
