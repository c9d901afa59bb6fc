package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"

	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/health"
	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/pool"
	"github.com/joao-brasil/collectflow/internal/ratelimit"
	"github.com/joao-brasil/collectflow/internal/service"
	"github.com/joao-brasil/collectflow/internal/test/sqlitedb"
	"github.com/joao-brasil/collectflow/internal/uow"
)

const testKey = "test-key"

type APISuite struct {
	suite.Suite
	pool    *pool.Pool
	limiter *ratelimit.Limiter
	deps    Deps
	router  *gin.Engine
}

func TestAPISuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.pool = sqlitedb.New(s.T(), 2)
	d, err := dialect.For("sqlite3")
	s.Require().NoError(err)
	u := uow.New(s.pool, d)

	s.limiter = ratelimit.New(context.Background(), ratelimit.Options{}, nil)
	s.deps = Deps{
		Pratiche:    service.NewPratiche(u),
		Movimenti:   service.NewMovimenti(u),
		Email:       service.NewEmail(u),
		SMS:         service.NewSMS(u),
		Health:      health.NewChecker(s.pool, nil),
		Limiter:     s.limiter,
		APIKeys:     []string{testKey, "other-key"},
		ReadRule:    ratelimit.Rule{Name: "read", Limit: 100, Window: time.Minute},
		WriteRule:   ratelimit.Rule{Name: "write", Limit: 10, Window: time.Minute},
		CORSOrigins: []string{"http://localhost:3000"},
	}
	s.router = NewRouter(s.deps)
}

func (s *APISuite) TearDownTest() {
	s.limiter.Close()
}

func (s *APISuite) do(method, path, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			s.Require().NoError(json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(headerAPIKey, key)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *APISuite) errorOf(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	s.decode(w, &body)
	return body
}

func (s *APISuite) createPratica(code string) model.Pratica {
	w := s.do(http.MethodPost, "/api/v1/pratiche/", testKey, map[string]any{
		"codice_pratica": code,
		"codice_cliente": "cli-1",
		"cognome":        "rossi",
		"provincia":      "mi",
		"email":          "",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var p model.Pratica
	s.decode(w, &p)
	return p
}

func (s *APISuite) TestPublicRoutes() {
	for _, path := range []string{"/", "/health", "/health/live", "/api/versions"} {
		w := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusOK, w.Code, path)
	}

	var body map[string]any
	s.decode(s.do(http.MethodGet, "/health", "", nil), &body)
	s.Equal("healthy", body["status"])
	s.Equal("CollectFlowAPI", body["service"])
}

func (s *APISuite) TestReadyReportsPool() {
	w := s.do(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusOK, w.Code)

	var report health.Report
	s.decode(w, &report)
	s.Equal(health.StatusHealthy, report.Status)
	s.Require().Len(report.Components, 1)
	s.Equal(2, report.Components[0].Pool.Max)

	held, err := s.pool.Acquire(context.Background())
	s.Require().NoError(err)
	held2, err := s.pool.Acquire(context.Background())
	s.Require().NoError(err)
	defer s.pool.Release(held)
	defer s.pool.Release(held2)

	w = s.do(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *APISuite) TestAPIKeyGate() {
	w := s.do(http.MethodGet, "/api/v1/pratiche/1", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("API key is required", s.errorOf(w).Error)

	w = s.do(http.MethodGet, "/api/v1/pratiche/1", "wrong", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid API key", s.errorOf(w).Error)

	w = s.do(http.MethodGet, "/api/v1/pratiche/1", "other-key", nil)
	s.Equal(http.StatusNotFound, w.Code)

	deps := s.deps
	deps.APIKeys = nil
	router := NewRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pratiche/1", nil)
	req.Header.Set(headerAPIKey, testKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("API keys not configured", s.errorOf(rec).Error)
}

func (s *APISuite) TestPraticaLifecycle() {
	p := s.createPratica("pr-100")
	s.Positive(p.Contatore)
	s.Equal("PR-100", *p.CodicePratica)
	s.Equal("CLI-1", *p.CodiceCliente)
	s.Equal("Rossi", *p.Cognome)
	s.Equal("MI", *p.Provincia)
	s.Nil(p.Email)

	w := s.do(http.MethodGet, "/api/v1/pratiche/"+itoa(p.Contatore), testKey, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got model.Pratica
	s.decode(w, &got)
	s.Equal(p.Contatore, got.Contatore)

	w = s.do(http.MethodPatch, "/api/v1/pratiche/"+itoa(p.Contatore)+"/status", testKey,
		map[string]string{"EsitoPrioritario": " OK "})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &got)
	s.Equal("OK", *got.EsitoPrioritario)
}

func (s *APISuite) TestPraticaErrors() {
	s.createPratica("PR-DUP")

	w := s.do(http.MethodPost, "/api/v1/pratiche/", testKey, map[string]any{
		"codice_pratica": "PR-DUP",
		"codice_cliente": "CLI-2",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("codice_pratica già esistente", s.errorOf(w).Error)

	w = s.do(http.MethodGet, "/api/v1/pratiche/99999", testKey, nil)
	s.Equal(http.StatusNotFound, w.Code)
	body := s.errorOf(w)
	s.Equal("Pratica non trovata", body.Error)
	s.Equal(http.StatusNotFound, body.StatusCode)
	s.Equal("/api/v1/pratiche/99999", body.Path)

	w = s.do(http.MethodGet, "/api/v1/pratiche/abc", testKey, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/pratiche/99999/status", testKey, map[string]string{"EsitoPrioritario": "OK"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestValidationError() {
	w := s.do(http.MethodPost, "/api/v1/pratiche/", testKey, map[string]any{
		"codice_pratica": "PR 1",
		"codice_cliente": "CLI",
		"cap":            "123",
	})
	s.Require().Equal(http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error   string             `json:"error"`
		Details []validationDetail `json:"details"`
	}
	s.decode(w, &body)
	s.Equal("Validation error", body.Error)

	fields := map[string]bool{}
	for _, d := range body.Details {
		fields[d.Loc[len(d.Loc)-1]] = true
	}
	s.True(fields["cap"])
	s.True(fields["codice_pratica"])

	w = s.do(http.MethodPost, "/api/v1/pratiche/", testKey, "{not json")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *APISuite) TestResources() {
	p := s.createPratica("PR-RES")
	id := itoa(p.Contatore)

	w := s.do(http.MethodPost, "/api/v1/movimenti/", testKey, map[string]any{
		"data":       "2024-01-15T00:00:00Z",
		"ora":        "2024-01-15T10:30:00",
		"contatore":  p.Contatore,
		"codesa":     "E01",
		"nomeag":     "Agente",
		"esito":      "PAG",
		"descresito": "Pagamento",
		"flagesito":  false,
		"importopag": 12.5,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/movimenti/"+id, testKey, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var movs []map[string]any
	s.decode(w, &movs)
	s.Require().Len(movs, 1)
	s.Equal("2024-01-15T10:30:00", movs[0]["ora"])
	s.Equal(false, movs[0]["flagesito"])
	s.EqualValues(12.5, movs[0]["importopag"])

	w = s.do(http.MethodPost, "/api/v1/email/", testKey, map[string]any{
		"Agente": "A01", "Data": "2024-03-01", "Ora": "09:15:00",
		"NomeMittente": "Ufficio", "Mittente": "u@example.com", "Destinatario": "c@example.com",
		"Oggetto": "Sollecito", "Messaggio": "Gentile cliente", "IdPratica": p.Contatore,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/email/"+id, testKey, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"Data":"2024-03-01"`)

	w = s.do(http.MethodPost, "/api/v1/sms/", testKey, map[string]any{
		"Data": "2024-03-01", "Ora": "12:00", "Testo": strings.Repeat("a", 161), "IdPratica": p.Contatore,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var sms model.SMS
	s.decode(w, &sms)
	s.Equal(2, sms.NrSMS)

	w = s.do(http.MethodGet, "/api/v1/sms/424242", testKey, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Pratica con contatore=424242 non trovata", s.errorOf(w).Error)

	w = s.do(http.MethodPost, "/api/v1/sms/", testKey, map[string]any{
		"Data": "2024-03-01", "Ora": "12:00", "Testo": "ciao", "IdPratica": 424242,
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestWriteRateLimit() {
	deps := s.deps
	deps.WriteRule = ratelimit.Rule{Name: "write-test", Limit: 2, Window: time.Minute}
	s.router = NewRouter(deps)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/pratiche/", testKey, map[string]any{"codice_pratica": "", "codice_cliente": ""})
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	}
	w := s.do(http.MethodPost, "/api/v1/pratiche/", testKey, map[string]any{"codice_pratica": "X", "codice_cliente": "Y"})
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))
	s.Equal("Rate limit exceeded: 2 per 1 minute", s.errorOf(w).Error)

	// reads have their own budget
	w = s.do(http.MethodGet, "/api/v1/pratiche/1", testKey, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestResponseHeaders() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.NotEmpty(w.Header().Get(headerRequestID))
	s.NotEmpty(w.Header().Get(headerProcessTime))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal("abc-123", rec.Header().Get(headerRequestID))
}

func (s *APISuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pratiche/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal("http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

// failingPratiche returns a fixed error, or panics when err is nil.
type failingPratiche struct{ err error }

func (f failingPratiche) Get(context.Context, int64) (*model.Pratica, error) {
	if f.err == nil {
		panic("store exploded")
	}
	return nil, f.err
}

func (f failingPratiche) Create(context.Context, *model.PraticaCreate) (*model.Pratica, error) {
	return nil, f.err
}

func (f failingPratiche) UpdateStatus(context.Context, int64, *model.PraticaStatusUpdate) (*model.Pratica, error) {
	return nil, f.err
}

func (s *APISuite) TestInfrastructureErrors() {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"exhausted", &pool.Error{Pool: "default", Kind: pool.KindExhausted, Issued: 2, Max: 2}, http.StatusServiceUnavailable, msgUnavailable},
		{"connect", &pool.Error{Pool: "default", Kind: pool.KindConnect}, http.StatusInternalServerError, msgInternal},
		{"statement", &uow.StatementError{Op: "exec"}, http.StatusInternalServerError, msgInternal},
		{"panic", nil, http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			deps := s.deps
			deps.Pratiche = failingPratiche{err: tt.err}
			s.router = NewRouter(deps)

			w := s.do(http.MethodGet, "/api/v1/pratiche/1", testKey, nil)
			s.Equal(tt.status, w.Code)
			s.Equal(tt.msg, s.errorOf(w).Error)
			if tt.status == http.StatusServiceUnavailable {
				s.Equal("1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
