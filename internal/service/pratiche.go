package service

import (
	"context"
	"fmt"

	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/uow"
)

const msgPraticaNotFound = "Pratica non trovata"

func praticaFields(p *model.Pratica) []field {
	return []field{
		{"contatore", &p.Contatore},
		{"codice pratica", &p.CodicePratica},
		{"codice cliente", &p.CodiceCliente},
		{"vocativo", &p.Vocativo},
		{"cognome", &p.Cognome},
		{"nome", &p.Nome},
		{"data nascita", &p.DataNascita},
		{"ragione sociale", &p.RagioneSociale},
		{"indirizzo", &p.Indirizzo},
		{"cap", &p.Cap},
		{"citta", &p.Citta},
		{"provincia", &p.Provincia},
		{"tipo mandato", &p.Mandante},
		{"tipo intervento", &p.Intervento},
		{"email", &p.Email},
		{"telefono1", &p.Telefono1},
		{"telefono2", &p.Telefono2},
		{"telefono3", &p.Telefono3},
		{"telefono4", &p.Telefono4},
		{"telefono5", &p.Telefono5},
		{"telefono6", &p.Telefono6},
		{"telefono7", &p.Telefono7},
		{"telefono8", &p.Telefono8},
		{"User_M3", &p.UserM3},
		{"EmailRX1", &p.EmailRX1},
		{"EsitoFonia", &p.EsitoPrioritario},
		{"scadenza mandato", &p.ScadenzaMandato},
		{"seat_importoOrig", &p.SeatImportoOrig},
		{"posizione", &p.Posizione},
		{"codice esattore", &p.Esattore},
	}
}

func praticaCreateFields(c *model.PraticaCreate) []field {
	return []field{
		{"codice pratica", c.CodicePratica},
		{"codice cliente", c.CodiceCliente},
		{"vocativo", c.Vocativo},
		{"cognome", c.Cognome},
		{"nome", c.Nome},
		{"data nascita", c.DataNascita},
		{"ragione sociale", c.RagioneSociale},
		{"indirizzo", c.Indirizzo},
		{"cap", c.Cap},
		{"citta", c.Citta},
		{"provincia", c.Provincia},
		{"tipo mandato", c.Mandante},
		{"tipo intervento", c.Intervento},
		{"email", c.Email},
		{"telefono1", c.Telefono1},
		{"telefono2", c.Telefono2},
		{"telefono3", c.Telefono3},
		{"telefono4", c.Telefono4},
		{"telefono5", c.Telefono5},
		{"telefono6", c.Telefono6},
		{"telefono7", c.Telefono7},
		{"telefono8", c.Telefono8},
		{"User_M3", c.UserM3},
		{"EmailRX1", c.EmailRX1},
		{"scadenza mandato", c.ScadenzaMandato},
		{"seat_importoOrig", c.SeatImportoOrig},
		{"posizione", c.Posizione},
		{"codice esattore", c.Esattore},
	}
}

type praticheQueries struct {
	get       string
	exists    string
	codeCount string
	insert    string
	setStatus string
}

func newPraticheQueries(d dialect.Dialect) praticheQueries {
	table := d.Table("", tablePratiche)
	return praticheQueries{
		get:       selectSQL(d, table, columns(praticaFields(&model.Pratica{})), where(d, "contatore")),
		exists:    praticaExistsSQL(d),
		codeCount: dialect.Rebind(d, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where(d, "codice pratica"))),
		insert:    d.InsertSQL(table, columns(praticaCreateFields(&model.PraticaCreate{})), "contatore"),
		setStatus: dialect.Rebind(d, fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s",
			table, d.Quote("EsitoFonia"), where(d, "contatore"))),
	}
}

// Pratiche handles practice records.
type Pratiche struct {
	uow *uow.UnitOfWork
	q   praticheQueries
}

// NewPratiche creates the practice handler.
func NewPratiche(u *uow.UnitOfWork) *Pratiche {
	return &Pratiche{uow: u, q: newPraticheQueries(u.Dialect())}
}

// Get returns the practice with the given contatore.
func (s *Pratiche) Get(ctx context.Context, contatore int64) (*model.Pratica, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.Pratica, error) {
		return s.fetch(ctx, tx, contatore)
	})
}

// Create inserts a new practice. The codice pratica must be unused, and an
// address requires a city.
func (s *Pratiche) Create(ctx context.Context, in *model.PraticaCreate) (*model.Pratica, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.Pratica, error) {
		var n int
		if _, err := tx.Get(ctx, s.q.codeCount, []any{in.CodicePratica}, &n); err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, duplicate("codice_pratica già esistente")
		}
		if in.Indirizzo != nil && *in.Indirizzo != "" && (in.Citta == nil || *in.Citta == "") {
			return nil, invalid("Se indirizzo è valorizzato, citta è obbligatoria")
		}

		id, err := tx.Insert(ctx, s.q.insert, values(praticaCreateFields(in))...)
		if err != nil {
			return nil, err
		}
		return in.Pratica(id), nil
	})
}

// UpdateStatus sets the priority outcome of a practice and returns the
// record as stored.
func (s *Pratiche) UpdateStatus(ctx context.Context, contatore int64, in *model.PraticaStatusUpdate) (*model.Pratica, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.Pratica, error) {
		ok, err := praticaExists(ctx, tx, s.q.exists, contatore)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound(msgPraticaNotFound)
		}
		if _, err := tx.Exec(ctx, s.q.setStatus, in.EsitoPrioritario, contatore); err != nil {
			return nil, err
		}
		return s.fetch(ctx, tx, contatore)
	})
}

func (s *Pratiche) fetch(ctx context.Context, tx *uow.Tx, contatore int64) (*model.Pratica, error) {
	var p model.Pratica
	found, err := tx.Get(ctx, s.q.get, []any{contatore}, values(praticaFields(&p))...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound(msgPraticaNotFound)
	}
	return &p, nil
}
