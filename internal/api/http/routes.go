package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-crud/internal/observability"
	"github.com/i474232898/forecast-crud/internal/store"
)

const ownerSuffix = "Owner"

var validate = validator.New()

// Store is the document store the emulator serves.
type Store interface {
	Push(c store.Collection, value json.RawMessage) (string, error)
	Set(c store.Collection, key string, value json.RawMessage) error
	Get(c store.Collection, key string) (json.RawMessage, error)
	List(c store.Collection) []store.Child
	Delete(c store.Collection, key string)
	Count() int
}

// Authorizer decides whether token grants access to uid's partition.
type Authorizer interface {
	Authorize(uid, token string) bool
}

// StaticTokens authorizes a fixed uid -> token table.
type StaticTokens map[string]string

func (s StaticTokens) Authorize(uid, token string) bool {
	want, ok := s[uid]
	return ok && token != "" && want == token
}

// AnyToken accepts any non-empty token.
type AnyToken struct{}

func (AnyToken) Authorize(_, token string) bool {
	return token != ""
}

// RegisterRoutes wires the Realtime Database REST emulation into the Fiber
// app. Register other routes first: this one matches every path.
func RegisterRoutes(app *fiber.App, st Store, auth Authorizer, m *observability.Metrics) {
	if m == nil {
		m = observability.NewMetrics(nil)
	}
	h := &handler{store: st, auth: auth, metrics: m}

	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		m.EmulatorRequests.WithLabelValues(c.Method(), strconv.Itoa(c.Response().StatusCode())).Inc()
		m.EmulatorRecords.Set(float64(st.Count()))
		return err
	})

	app.Get("/*", h.get)
	app.Post("/*", h.post)
	app.Put("/*", h.put)
	app.Delete("/*", h.delete)
}

type handler struct {
	store   Store
	auth    Authorizer
	metrics *observability.Metrics
}

// pathParams identifies the addressed node. Keys may not contain the
// characters the Realtime Database forbids.
type pathParams struct {
	Resource string `validate:"required,excludesall=.$#[]/"`
	Owner    string `validate:"required,excludesall=.$#[]/"`
	Key      string `validate:"omitempty,excludesall=.$#[]/"`
}

func (p pathParams) collection() store.Collection {
	return store.Collection{Resource: p.Resource, Owner: p.Owner}
}

func (p pathParams) isItem() bool {
	return p.Key != ""
}

// parsePath accepts "{resource}Owner/{uid}.json" and
// "{resource}Owner/{uid}/{key}.json".
func parsePath(raw string) (pathParams, error) {
	var p pathParams

	if !strings.HasSuffix(raw, ".json") {
		return p, errors.New("path must end in .json")
	}
	segs := strings.Split(strings.TrimSuffix(strings.TrimPrefix(raw, "/"), ".json"), "/")
	if len(segs) < 2 || len(segs) > 3 {
		return p, errors.New("path must address a collection or a single record")
	}
	for i, s := range segs {
		u, err := url.PathUnescape(s)
		if err != nil {
			return p, err
		}
		segs[i] = u
	}

	if !strings.HasSuffix(segs[0], ownerSuffix) {
		return p, errors.New("resource segment must end in " + ownerSuffix)
	}
	p.Resource = strings.TrimSuffix(segs[0], ownerSuffix)
	p.Owner = segs[1]
	if len(segs) == 3 {
		p.Key = segs[2]
		if p.Key == "" {
			return p, errors.New("empty record key")
		}
	}

	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}

// bind parses and authorizes the request. When it returns false the error
// response has already been written.
func (h *handler) bind(c *fiber.Ctx) (pathParams, bool) {
	// Params aliases fiber's request buffer; keys outlive the request.
	p, err := parsePath(strings.Clone(c.Params("*")))
	if err != nil {
		_ = fail(c, fiber.StatusBadRequest, err.Error())
		return p, false
	}
	if !h.auth.Authorize(p.Owner, c.Query("auth")) {
		_ = fail(c, fiber.StatusUnauthorized, "Permission denied")
		return p, false
	}
	return p, true
}

func (h *handler) get(c *fiber.Ctx) error {
	p, ok := h.bind(c)
	if !ok {
		return nil
	}

	if p.isItem() {
		v, err := h.store.Get(p.collection(), p.Key)
		if errors.Is(err, store.ErrNotFound) {
			return sendJSON(c, []byte("null"))
		}
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, err.Error())
		}
		return sendJSON(c, v)
	}

	children := h.store.List(p.collection())
	if len(children) == 0 {
		return sendJSON(c, []byte("null"))
	}
	return sendJSON(c, encodeChildren(children))
}

func (h *handler) post(c *fiber.Ctx) error {
	p, ok := h.bind(c)
	if !ok {
		return nil
	}
	if p.isItem() {
		return fail(c, fiber.StatusMethodNotAllowed, "POST must target a collection")
	}

	body, err := objectBody(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	key, err := h.store.Push(p.collection(), body)
	if errors.Is(err, store.ErrQuotaExceeded) {
		return fail(c, fiber.StatusInsufficientStorage, err.Error())
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	h.metrics.EmulatorRecords.Set(float64(h.store.Count()))
	return c.JSON(fiber.Map{"name": key})
}

func (h *handler) put(c *fiber.Ctx) error {
	p, ok := h.bind(c)
	if !ok {
		return nil
	}
	if !p.isItem() {
		return fail(c, fiber.StatusMethodNotAllowed, "PUT must target a single record")
	}

	body, err := objectBody(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.store.Set(p.collection(), p.Key, body); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return fail(c, fiber.StatusInsufficientStorage, err.Error())
		}
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	h.metrics.EmulatorRecords.Set(float64(h.store.Count()))
	return sendJSON(c, body)
}

func (h *handler) delete(c *fiber.Ctx) error {
	p, ok := h.bind(c)
	if !ok {
		return nil
	}
	if !p.isItem() {
		return fail(c, fiber.StatusMethodNotAllowed, "DELETE must target a single record")
	}

	h.store.Delete(p.collection(), p.Key)
	h.metrics.EmulatorRecords.Set(float64(h.store.Count()))
	return sendJSON(c, []byte("null"))
}

// objectBody returns the request body if it is a JSON object.
func objectBody(c *fiber.Ctx) (json.RawMessage, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		return nil, errors.New("body must be a JSON object")
	}
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out, nil
}

// encodeChildren writes children as one JSON object keeping their order.
func encodeChildren(children []store.Child) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range children {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(ch.Key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(ch.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func sendJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

func fail(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
