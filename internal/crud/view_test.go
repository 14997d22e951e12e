package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	httpapi "github.com/i474232898/forecast-crud/internal/api/http"
	"github.com/i474232898/forecast-crud/internal/forecast"
	"github.com/i474232898/forecast-crud/internal/rtdb"
	"github.com/i474232898/forecast-crud/internal/session"
	"github.com/i474232898/forecast-crud/internal/store"
)

const testBase = "https://demo.firebaseio.com"

var testSession = session.Session{UserID: "uid-1", Token: "tok-1"}

type call struct {
	method string
	url    string
	body   any
}

// fakeStore records calls and answers with canned responses per method.
type fakeStore struct {
	calls     []call
	responses map[string]*rtdb.Response
	errs      map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		responses: map[string]*rtdb.Response{
			http.MethodGet: {StatusCode: http.StatusOK, Body: []byte("null")},
		},
		errs: map[string]error{},
	}
}

func (f *fakeStore) respond(method, url string, body any) (*rtdb.Response, error) {
	f.calls = append(f.calls, call{method, url, body})
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	if resp, ok := f.responses[method]; ok {
		return resp, nil
	}
	return &rtdb.Response{StatusCode: http.StatusOK, Body: []byte("null")}, nil
}

func (f *fakeStore) Get(_ context.Context, url string) (*rtdb.Response, error) {
	return f.respond(http.MethodGet, url, nil)
}

func (f *fakeStore) Post(_ context.Context, url string, body any) (*rtdb.Response, error) {
	return f.respond(http.MethodPost, url, body)
}

func (f *fakeStore) Put(_ context.Context, url string, body any) (*rtdb.Response, error) {
	return f.respond(http.MethodPut, url, body)
}

func (f *fakeStore) Delete(_ context.Context, url string) (*rtdb.Response, error) {
	return f.respond(http.MethodDelete, url, nil)
}

func (f *fakeStore) methods() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func ok(body string) *rtdb.Response {
	return &rtdb.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func newTestView(t *testing.T, st Store) *View {
	t.Helper()
	gen := forecast.NewGenerator(clockwork.NewFakeClockAt(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)), rand.NewPCG(7, 7))
	return NewView(st, testBase, WithGenerator(gen), WithLogger(zaptest.NewLogger(t).Sugar()))
}

func initialized(t *testing.T, st Store) *View {
	t.Helper()
	v := newTestView(t, st)
	msgs := v.Initialize(context.Background(), testSession)
	require.False(t, HasError(msgs), "%v", msgs)
	return v
}

func texts(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestInitialize_FetchesUserCollection(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"abc":{"city":"Regina","date":"2026-10-20","temperatureCelsius":10,"description":"Windy"}}`)

	v := initialized(t, st)

	require.Len(t, st.calls, 1)
	assert.Equal(t, testBase+"/WeatherForecastOwner/uid-1.json?auth=tok-1", st.calls[0].url)
	assert.Equal(t, StateLoaded, v.State())
	assert.Equal(t, 1, v.Renders())
	assert.Equal(t, testSession, v.Session())

	list := v.Forecasts()
	require.Len(t, list, 1)
	assert.Equal(t, "abc", list[0].Name)
	assert.Equal(t, "Regina", list[0].City)
	assert.Equal(t, 10, list[0].TemperatureCelsius)
	assert.Equal(t, 49, list[0].TemperatureFahrenheit())
}

func TestInitialize_InvalidSession(t *testing.T) {
	st := newFakeStore()
	v := newTestView(t, st)

	msgs := v.Initialize(context.Background(), session.Session{UserID: "uid-1"})
	assert.True(t, HasError(msgs))
	assert.Equal(t, StateUninitialized, v.State())
	assert.Empty(t, st.calls)
}

func TestRefresh_PreservesResponseOrderAndInjectsKey(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"k3":{"city":"C","name":"ignored"},"k1":{"city":"A"},"k2":{"city":"B"}}`)

	v := initialized(t, st)

	list := v.Forecasts()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"k3", "k1", "k2"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.Equal(t, []string{"C", "A", "B"}, []string{list[0].City, list[1].City, list[2].City})
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"abc":{"city":"Regina"}}`)
	v := initialized(t, st)

	st.responses[http.MethodGet] = &rtdb.Response{StatusCode: http.StatusServiceUnavailable}
	msgs := v.Refresh(context.Background())
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "503")
	assert.Equal(t, http.StatusServiceUnavailable, msgs[0].StatusCode)
	assert.Len(t, v.Forecasts(), 1)

	st.errs[http.MethodGet] = errors.New("connection refused")
	msgs = v.Refresh(context.Background())
	assert.True(t, HasError(msgs))
	assert.Len(t, v.Forecasts(), 1)

	delete(st.errs, http.MethodGet)
	st.responses[http.MethodGet] = ok(`{"abc":{"date":"not a date"}}`)
	msgs = v.Refresh(context.Background())
	assert.True(t, HasError(msgs))
	assert.Equal(t, "Regina", v.Forecasts()[0].City)
	assert.Equal(t, 1, v.Renders())
}

func TestOpenNew(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"abc":{"city":"Regina"}}`)
	v := initialized(t, st)
	require.Empty(t, v.Select("abc"))

	v.OpenNew()
	require.NotNil(t, v.Selected())
	assert.Equal(t, forecast.Record{}, *v.Selected())
	assert.True(t, v.DialogOpen())
	assert.Equal(t, StateEditing, v.State())
	assert.Len(t, st.calls, 1, "no I/O")
}

func TestSelect(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"abc":{"city":"Regina"}}`)
	v := initialized(t, st)

	assert.Empty(t, v.Select("abc"))
	assert.Equal(t, "abc", v.Selected().Name)
	assert.Equal(t, StateEditing, v.State())

	v.Selected().City = "Changed"
	assert.Equal(t, "Regina", v.Forecasts()[0].City, "selection is a copy")

	v.CloseDialog()
	assert.False(t, v.DialogOpen())
	assert.Equal(t, StateLoaded, v.State())

	msgs := v.Select("missing")
	assert.True(t, HasError(msgs))
}

func TestGenerateSampleData(t *testing.T) {
	v := initialized(t, newFakeStore())
	today := forecast.NewDate(2026, time.October, 15)

	msgs := v.GenerateSampleData()
	assert.True(t, HasError(msgs), "nothing selected")

	v.OpenNew()
	for i := 0; i < 100; i++ {
		require.Empty(t, v.GenerateSampleData())
		r := v.Selected()
		assert.GreaterOrEqual(t, r.TemperatureCelsius, -20)
		assert.LessOrEqual(t, r.TemperatureCelsius, 50)
		assert.True(t, r.Date.After(today))
		assert.NotEmpty(t, r.City)
		assert.NotEmpty(t, r.Description)
		assert.True(t, r.IsNew())
	}
}

func TestSave_CreateNew(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodPost] = ok(`{"name":"-NewKey"}`)
	v := initialized(t, st)

	v.OpenNew()
	v.Selected().City = "Regina"
	v.Selected().TemperatureCelsius = 10

	msgs := v.Save(context.Background())

	assert.Equal(t, []string{http.MethodGet, http.MethodPost, http.MethodGet}, st.methods())
	post := st.calls[1]
	assert.Equal(t, testBase+"/WeatherForecastOwner/uid-1.json?auth=tok-1", post.url)
	body, err := json.Marshal(post.body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"name"`)
	assert.Contains(t, string(body), `"city":"Regina"`)

	assert.Contains(t, texts(msgs), "-NewKey")
	assert.False(t, HasError(msgs))
	assert.Nil(t, v.Selected())
	assert.False(t, v.DialogOpen())
	assert.Equal(t, StateLoaded, v.State())
}

func TestSave_UpdateExisting(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"K":{"city":"Regina","temperatureCelsius":10}}`)
	st.responses[http.MethodPut] = ok(`{"name":"K","city":"Saskatoon","temperatureCelsius":12}`)
	v := initialized(t, st)

	require.Empty(t, v.Select("K"))
	v.Selected().City = "Saskatoon"
	v.Selected().TemperatureCelsius = 12

	msgs := v.Save(context.Background())

	assert.Equal(t, []string{http.MethodGet, http.MethodPut, http.MethodGet}, st.methods())
	put := st.calls[1]
	assert.True(t, strings.HasPrefix(put.url, testBase+"/WeatherForecastOwner/uid-1/K.json?"), put.url)
	assert.Equal(t, forecast.Record{Name: "K", City: "Saskatoon", TemperatureCelsius: 12}, put.body)
	assert.Contains(t, texts(msgs), "Successfully updated")
	assert.Contains(t, texts(msgs), "Saskatoon")
	assert.NotNil(t, v.Selected(), "update keeps the selection")
	assert.False(t, v.DialogOpen())
}

func TestSave_NonOKStillRefreshes(t *testing.T) {
	for _, tt := range []struct {
		name   string
		method string
		setup  func(v *View)
	}{
		{"create", http.MethodPost, func(v *View) { v.OpenNew() }},
		{"update", http.MethodPut, func(v *View) { require.Empty(t, v.Select("K")) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			st.responses[http.MethodGet] = ok(`{"K":{"city":"Regina"}}`)
			st.responses[tt.method] = &rtdb.Response{StatusCode: http.StatusUnauthorized, Body: []byte(`{"error":"Permission denied"}`)}
			v := initialized(t, st)
			tt.setup(v)

			msgs := v.Save(context.Background())

			require.NotEmpty(t, msgs)
			assert.Contains(t, msgs[0].Text, "401")
			assert.Equal(t, SeverityInfo, msgs[0].Severity)
			assert.Equal(t, http.MethodGet, st.calls[len(st.calls)-1].method, "list refreshed")
			assert.False(t, v.DialogOpen())
			assert.Equal(t, StateLoaded, v.State())
			assert.NotNil(t, v.Selected())
		})
	}
}

func TestSave_TransportErrorIsContained(t *testing.T) {
	st := newFakeStore()
	st.errs[http.MethodPost] = errors.New("dial tcp: connection refused")
	v := initialized(t, st)
	v.OpenNew()

	msgs := v.Save(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, SeverityError, msgs[0].Severity)
	assert.Contains(t, msgs[0].Text, "connection refused")
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, st.methods(), "no refresh after transport failure")
	assert.NotNil(t, v.Selected())
	assert.Equal(t, StateLoaded, v.State())
}

func TestSave_BadPushResult(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodPost] = ok(`{}`)
	v := initialized(t, st)
	v.OpenNew()

	msgs := v.Save(context.Background())
	assert.True(t, HasError(msgs))
	assert.NotNil(t, v.Selected())
}

func TestSave_Preconditions(t *testing.T) {
	st := newFakeStore()
	v := newTestView(t, st)
	v.OpenNew()
	assert.True(t, HasError(v.Save(context.Background())), "not initialized")

	v = initialized(t, st)
	assert.True(t, HasError(v.Save(context.Background())), "nothing selected")
	assert.Len(t, st.calls, 1)
}

func TestDelete(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"K":{"city":"Regina"}}`)
	v := initialized(t, st)
	require.Empty(t, v.Select("K"))

	st.responses[http.MethodGet] = ok(`null`)
	msgs := v.Delete(context.Background())

	assert.Equal(t, []string{http.MethodGet, http.MethodDelete, http.MethodGet}, st.methods())
	assert.True(t, strings.HasPrefix(st.calls[1].url, testBase+"/WeatherForecastOwner/uid-1/K.json?"))
	assert.Contains(t, texts(msgs), "Successfully deleted data with name K")
	assert.Nil(t, v.Selected())
	assert.Empty(t, v.Forecasts())
	assert.Equal(t, StateLoaded, v.State())
}

func TestDelete_NonOKDoesNotRefresh(t *testing.T) {
	st := newFakeStore()
	st.responses[http.MethodGet] = ok(`{"K":{"city":"Regina"}}`)
	st.responses[http.MethodDelete] = &rtdb.Response{StatusCode: http.StatusForbidden}
	v := initialized(t, st)
	require.Empty(t, v.Select("K"))

	msgs := v.Delete(context.Background())

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "403")
	assert.Equal(t, []string{http.MethodGet, http.MethodDelete}, st.methods())
	assert.Len(t, v.Forecasts(), 1)
}

func TestDelete_Preconditions(t *testing.T) {
	st := newFakeStore()
	v := initialized(t, st)

	assert.True(t, HasError(v.Delete(context.Background())), "nothing selected")
	v.OpenNew()
	assert.True(t, HasError(v.Delete(context.Background())), "unsaved record")

	st.errs[http.MethodDelete] = errors.New("boom")
	v.Selected().Name = "K"
	msgs := v.Delete(context.Background())
	assert.True(t, HasError(msgs))
	assert.Contains(t, texts(msgs), "boom")
}

func TestAnyNonOKStatusIsReportedWithCode(t *testing.T) {
	codes := []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError}
	for _, code := range codes {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			st := newFakeStore()
			st.responses[http.MethodGet] = ok(`{"K":{"city":"Regina"}}`)
			v := initialized(t, st)

			bad := &rtdb.Response{StatusCode: code}
			st.responses[http.MethodPost] = bad
			st.responses[http.MethodPut] = bad
			st.responses[http.MethodDelete] = bad

			v.OpenNew()
			assert.Contains(t, texts(v.Save(context.Background())), fmt.Sprint(code))
			require.Empty(t, v.Select("K"))
			assert.Contains(t, texts(v.Save(context.Background())), fmt.Sprint(code))
			require.Empty(t, v.Select("K"))
			assert.Contains(t, texts(v.Delete(context.Background())), fmt.Sprint(code))

			st.responses[http.MethodGet] = bad
			assert.Contains(t, texts(v.Refresh(context.Background())), fmt.Sprint(code))
		})
	}
}

func TestMessagesAreRecorded(t *testing.T) {
	st := newFakeStore()
	v := initialized(t, st)
	v.GenerateSampleData()

	all := v.Messages()
	require.Len(t, all, 2)
	assert.Equal(t, SeverityInfo, all[0].Severity)
	assert.Equal(t, SeverityError, all[1].Severity)
}

// Round trips against the emulator through the real client.

func emulatorView(t *testing.T) *View {
	t.Helper()
	app := fiber.New()
	httpapi.RegisterRoutes(app, store.NewMemoryStore(0), httpapi.StaticTokens{"uid-1": "tok-1"}, nil)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)

	client := rtdb.NewClient(rtdb.Config{HTTPClient: srv.Client()})
	v := NewView(client, srv.URL, WithLogger(zaptest.NewLogger(t).Sugar()))
	msgs := v.Initialize(context.Background(), testSession)
	require.False(t, HasError(msgs), "%v", msgs)
	return v
}

func TestEmulator_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	v := emulatorView(t)
	assert.Empty(t, v.Forecasts())

	for _, city := range []string{"Regina", "Calgary", "Edmonton"} {
		v.OpenNew()
		require.Empty(t, v.GenerateSampleData())
		v.Selected().City = city
		msgs := v.Save(ctx)
		require.False(t, HasError(msgs), "%v", msgs)
	}

	list := v.Forecasts()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Regina", "Calgary", "Edmonton"}, []string{list[0].City, list[1].City, list[2].City})

	key := list[1].Name
	require.Empty(t, v.Select(key))
	v.Selected().TemperatureCelsius = 33
	require.False(t, HasError(v.Save(ctx)))
	list = v.Forecasts()
	assert.Equal(t, key, list[1].Name)
	assert.Equal(t, 33, list[1].TemperatureCelsius)

	require.Empty(t, v.Select(key))
	msgs := v.Delete(ctx)
	require.False(t, HasError(msgs), "%v", msgs)

	list = v.Forecasts()
	require.Len(t, list, 2)
	for _, r := range list {
		assert.NotEqual(t, key, r.Name)
	}
}

func TestEmulator_WrongTokenReportsStatus(t *testing.T) {
	app := fiber.New()
	httpapi.RegisterRoutes(app, store.NewMemoryStore(0), httpapi.StaticTokens{"uid-1": "other"}, nil)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	defer srv.Close()

	v := NewView(rtdb.NewClient(rtdb.Config{HTTPClient: srv.Client()}), srv.URL)
	msgs := v.Initialize(context.Background(), testSession)

	require.Len(t, msgs, 1)
	assert.Equal(t, http.StatusUnauthorized, msgs[0].StatusCode)
	assert.Contains(t, msgs[0].Text, "401")
	assert.Equal(t, StateLoaded, v.State())
}

func TestFailed(t *testing.T) {
	assert.False(t, Failed(nil))
	assert.False(t, Failed([]Message{infof("fine")}))
	assert.True(t, Failed([]Message{infof("fine"), statusf(401, "status %d")}))
	assert.True(t, Failed([]Message{errorf("boom")}))
}
