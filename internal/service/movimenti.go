package service

import (
	"context"
	"database/sql"

	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/uow"
)

const msgPraticaContatoreNotFound = "Pratica con contatore=%d non trovata"

func movimentoFields(m *model.Movimento) []field {
	return []field{
		{"ID", &m.ID},
		{"Data", &m.Data},
		{"Ora", &m.Ora},
		{"IdPratica", &m.Contatore},
		{"CodAgenzia", &m.Codagenzia},
		{"CodEsa", &m.Codesa},
		{"NomeAg", &m.Nomeag},
		{"Esito", &m.Esito},
		{"DescrEsito", &m.Descresito},
		{"FlagEsito", &m.Flagesito},
		{"Note", &m.Note},
		{"DataPag", &m.Datapag},
		{"ImportoPag", &m.Importopag},
		{"OraRecall", &m.Orarecall},
		{"Tel1", &m.Tel1},
	}
}

func movimentoCreateFields(c *model.MovimentoCreate) []field {
	return []field{
		{"Data", c.Data},
		{"Ora", c.Ora},
		{"IdPratica", c.Contatore},
		{"CodAgenzia", c.Codagenzia},
		{"CodEsa", c.Codesa},
		{"NomeAg", c.Nomeag},
		{"Esito", c.Esito},
		{"DescrEsito", c.Descresito},
		{"FlagEsito", c.Flagesito},
		{"Note", c.Note},
		{"DataPag", c.Datapag},
		{"ImportoPag", c.Importopag},
		{"OraRecall", c.Orarecall},
		{"Tel1", c.Tel1},
	}
}

// Movimenti handles the movements recorded against practices.
type Movimenti struct {
	uow    *uow.UnitOfWork
	exists string
	list   string
	insert string
}

// NewMovimenti creates the movement handler.
func NewMovimenti(u *uow.UnitOfWork) *Movimenti {
	d := u.Dialect()
	table := d.Table("", tableMovimenti)
	return &Movimenti{
		uow:    u,
		exists: praticaExistsSQL(d),
		list: selectSQL(d, table, columns(movimentoFields(&model.Movimento{})), where(d, "IdPratica")) +
			" ORDER BY " + d.Quote("ID"),
		insert: d.InsertSQL(table, columns(movimentoCreateFields(&model.MovimentoCreate{})), "ID"),
	}
}

// List returns the movements of a practice, oldest first.
func (s *Movimenti) List(ctx context.Context, contatore int64) ([]*model.Movimento, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) ([]*model.Movimento, error) {
		ok, err := praticaExists(ctx, tx, s.exists, contatore)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound(msgPraticaContatoreNotFound, contatore)
		}

		out := []*model.Movimento{}
		err = tx.Select(ctx, s.list, []any{contatore}, func(rows *sql.Rows) error {
			var m model.Movimento
			if err := rows.Scan(values(movimentoFields(&m))...); err != nil {
				return err
			}
			out = append(out, &m)
			return nil
		})
		return out, err
	})
}

// Create records a movement. The practice must exist.
func (s *Movimenti) Create(ctx context.Context, in *model.MovimentoCreate) (*model.Movimento, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.Movimento, error) {
		ok, err := praticaExists(ctx, tx, s.exists, in.Contatore)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid(msgPraticaContatoreNotFound, in.Contatore)
		}

		id, err := tx.Insert(ctx, s.insert, values(movimentoCreateFields(in))...)
		if err != nil {
			return nil, err
		}
		return in.Movimento(id), nil
	})
}
