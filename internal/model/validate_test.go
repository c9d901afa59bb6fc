package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validPratica() *PraticaCreate {
	return &PraticaCreate{
		CodicePratica: "pr-2024_01",
		CodiceCliente: "cl001",
		Cognome:       ptr("rossi"),
		Nome:          ptr("mARIO"),
		Cap:           ptr("20121"),
		Citta:         ptr("Milano"),
		Provincia:     ptr("mi"),
		Telefono1:     ptr("+39 333-123.4567"),
		Email:         ptr("mario.rossi@example.it"),
		UserM3:        ptr(0.0),
	}
}

func TestPraticaCreateNormalizeAndValidate(t *testing.T) {
	p := validPratica()
	p.Normalize()
	require.NoError(t, Validate(p))

	assert.Equal(t, "PR-2024_01", p.CodicePratica)
	assert.Equal(t, "CL001", p.CodiceCliente)
	assert.Equal(t, "Rossi", *p.Cognome)
	assert.Equal(t, "Mario", *p.Nome)
	assert.Equal(t, "MI", *p.Provincia)
}

func TestPraticaCreateBlankEmailsBecomeNull(t *testing.T) {
	p := validPratica()
	p.Email = ptr("   ")
	p.EmailRX1 = ptr("")
	p.Normalize()

	assert.Nil(t, p.Email)
	assert.Nil(t, p.EmailRX1)
	assert.NoError(t, Validate(p))
}

func TestPraticaCreateKeepsOtherBlanks(t *testing.T) {
	p := validPratica()
	p.Telefono2 = ptr("")
	p.Cognome = ptr("")
	p.Normalize()

	require.NoError(t, Validate(p))
	require.NotNil(t, p.Telefono2)
	assert.Equal(t, "", *p.Telefono2)
	require.NotNil(t, p.Cognome)
	assert.Equal(t, "", *p.Cognome)
}

func TestPraticaCreateBlankCapAndProvinciaAreRejected(t *testing.T) {
	p := validPratica()
	p.Cap = ptr("")
	p.Provincia = ptr("")
	p.Normalize()

	err := Validate(p)
	require.Error(t, err)
	msgs := Messages(err)
	assert.Contains(t, msgs["cap"], ruleMessages["cap"])
	assert.Contains(t, msgs["provincia"], "deve essere di 2 caratteri")

	p = validPratica()
	p.Cap = nil
	p.Provincia = nil
	p.Normalize()
	assert.NoError(t, Validate(p))
}

func TestTitleCapitalizesAfterApostrophe(t *testing.T) {
	tests := map[string]string{
		"o'brien":    "O'Brien",
		"D'ANGELO":   "D'Angelo",
		"dell'acqua": "Dell'Acqua",
		"de luca":    "De Luca",
	}
	for in, want := range tests {
		s := in
		title(&s)
		assert.Equal(t, want, s, in)
	}
}

func TestPraticaCreateRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *PraticaCreate)
		field  string
		msg    string
	}{
		{"cap", func(p *PraticaCreate) { p.Cap = ptr("2012") }, "cap", ruleMessages["cap"]},
		{"provincia", func(p *PraticaCreate) { p.Provincia = ptr("M1") }, "provincia", ruleMessages["provincia"]},
		{"phone", func(p *PraticaCreate) { p.Telefono3 = ptr("12-34") }, "telefono3", ruleMessages["phone"]},
		{"code", func(p *PraticaCreate) { p.CodicePratica = "PR#1" }, "codice_pratica", ruleMessages["code"]},
		{"name", func(p *PraticaCreate) { p.Nome = ptr("M4rio") }, "nome", ruleMessages["person_name"]},
		{"email", func(p *PraticaCreate) { p.Email = ptr("not-an-email") }, "email", "indirizzo email non valido"},
		{"user_m3", func(p *PraticaCreate) { p.UserM3 = ptr(-1.5) }, "user_m3", "deve essere maggiore o uguale a 0"},
		{"esattore", func(p *PraticaCreate) { p.Esattore = ptr("ABCD") }, "esattore", "massimo 3 caratteri"},
		{"required", func(p *PraticaCreate) { p.CodiceCliente = "" }, "codice_cliente", "campo obbligatorio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPratica()
			tt.mutate(p)
			p.Normalize()

			err := Validate(p)
			require.Error(t, err)
			msgs := Messages(err)
			assert.Contains(t, msgs[tt.field], tt.msg, "messages: %v", msgs)
		})
	}
}

func TestPraticaStatusUpdate(t *testing.T) {
	u := &PraticaStatusUpdate{EsitoPrioritario: "  A1 "}
	u.Normalize()
	require.NoError(t, Validate(u))
	assert.Equal(t, "A1", u.EsitoPrioritario)

	u = &PraticaStatusUpdate{EsitoPrioritario: "ABCD"}
	u.Normalize()
	assert.Error(t, Validate(u))

	u = &PraticaStatusUpdate{EsitoPrioritario: "   "}
	u.Normalize()
	assert.Error(t, Validate(u))
}

func TestMovimentoCreateRequiresFlagAndTimes(t *testing.T) {
	m := &MovimentoCreate{
		Contatore:  1,
		Codesa:     "ABC",
		Nomeag:     "Agente",
		Esito:      "OK",
		Descresito: "Contattato",
	}
	msgs := Messages(Validate(m))
	assert.Contains(t, msgs, "data")
	assert.Contains(t, msgs, "ora")
	assert.Contains(t, msgs, "flagesito")

	m.Data = ptr(TimestampOf(time.Now()))
	m.Ora = ptr(TimestampOf(time.Now()))
	m.Flagesito = ptr(false)
	assert.NoError(t, Validate(m))
}

func TestDecodeSMSCreate(t *testing.T) {
	body := `{
		"Data": "2024-01-15T10:30:00Z",
		"Ora": "2024-01-15T14:05:09",
		"CodAg": "A01",
		"Testo": "Promemoria pagamento",
		"IdPratica": 42,
		"FlagAuto": true,
		"DataSpedizione": "2024-01-16",
		"IdTestoSMS": 7
	}`

	var s SMSCreate
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	require.NoError(t, Validate(&s))

	assert.Equal(t, "2024-01-15", s.Data.String())
	assert.Equal(t, "14:05:09", s.Ora.String())
	assert.Equal(t, "2024-01-16", s.DataSpedizione.String())
	assert.True(t, *s.FlagAuto)
	assert.Equal(t, int64(7), *s.IdTestoSMS)
}

func TestClockFormats(t *testing.T) {
	var c Clock
	require.NoError(t, c.UnmarshalText([]byte("09:15")))
	assert.Equal(t, "09:15:00", c.String())

	require.NoError(t, c.Scan("18:45:30"))
	assert.Equal(t, "18:45:30", c.String())

	assert.Error(t, c.UnmarshalText([]byte("2024-01-15")))
}

func TestTimestampJSON(t *testing.T) {
	ts := TimestampOf(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-03-01T09:30:00"`, string(b))

	var back Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-01 09:30:00"`), &back))
	assert.True(t, ts.Equal(back.Time))
}

func TestDateValueIsMidnightUTC(t *testing.T) {
	d := DateOf(time.Date(2024, 5, 17, 23, 59, 0, 0, time.UTC))
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), v)
}
