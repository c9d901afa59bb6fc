package service

import (
	"context"
	"database/sql"

	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/uow"
)

func smsFields(m *model.SMS) []field {
	return []field{
		{"Id", &m.Id},
		{"Data", &m.Data},
		{"Ora", &m.Ora},
		{"CodAg", &m.CodAg},
		{"Mittente", &m.Mittente},
		{"Destinatario", &m.Destinatario},
		{"NrTel", &m.NrTel},
		{"Testo", &m.Testo},
		{"IdSpedizione", &m.IdSpedizione},
		{"Stato", &m.Stato},
		{"FlagAuto", &m.FlagAuto},
		{"IdPratica", &m.IdPratica},
		{"FlagDaSpedire", &m.FlagDaSpedire},
		{"DataSpedizione", &m.DataSpedizione},
		{"Fornitore", &m.Fornitore},
		{"Applicazione", &m.Applicazione},
		{"Interno", &m.Interno},
		{"IdTestoSMS", &m.IdTestoSMS},
		{"NrSMS", &m.NrSMS},
	}
}

func smsCreateFields(c *model.SMSCreate) []field {
	return []field{
		{"Data", c.Data},
		{"Ora", c.Ora},
		{"CodAg", c.CodAg},
		{"Mittente", c.Mittente},
		{"Destinatario", c.Destinatario},
		{"NrTel", c.NrTel},
		{"Testo", c.Testo},
		{"IdSpedizione", c.IdSpedizione},
		{"Stato", c.Stato},
		{"FlagAuto", c.FlagAuto},
		{"IdPratica", c.IdPratica},
		{"FlagDaSpedire", c.FlagDaSpedire},
		{"DataSpedizione", c.DataSpedizione},
		{"Fornitore", c.Fornitore},
		{"Applicazione", c.Applicazione},
		{"Interno", c.Interno},
		{"IdTestoSMS", c.IdTestoSMS},
	}
}

// SMS handles the text-message log of practices.
type SMS struct {
	uow     *uow.UnitOfWork
	exists  string
	list    string
	insert  string
	segment string
}

// NewSMS creates the SMS handler.
func NewSMS(u *uow.UnitOfWork) *SMS {
	d := u.Dialect()
	table := d.Table(schemaDBO, tableSMS)
	return &SMS{
		uow:    u,
		exists: praticaExistsSQL(d),
		list: selectSQL(d, table, columns(smsFields(&model.SMS{})), where(d, "IdPratica")) +
			" ORDER BY " + d.Quote("Id"),
		insert:  d.InsertSQL(table, columns(smsCreateFields(&model.SMSCreate{})), "Id"),
		segment: selectSQL(d, table, []string{"NrSMS"}, where(d, "Id")),
	}
}

// List returns the text messages of a practice.
func (s *SMS) List(ctx context.Context, contatore int64) ([]*model.SMS, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) ([]*model.SMS, error) {
		ok, err := praticaExists(ctx, tx, s.exists, contatore)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound(msgPraticaContatoreNotFound, contatore)
		}

		out := []*model.SMS{}
		err = tx.Select(ctx, s.list, []any{contatore}, func(rows *sql.Rows) error {
			var m model.SMS
			if err := rows.Scan(values(smsFields(&m))...); err != nil {
				return err
			}
			out = append(out, &m)
			return nil
		})
		return out, err
	})
}

// Create logs a text message against a practice, which must exist. The
// returned record carries the segment count computed by the database.
func (s *SMS) Create(ctx context.Context, in *model.SMSCreate) (*model.SMS, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.SMS, error) {
		ok, err := praticaExists(ctx, tx, s.exists, in.IdPratica)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid(msgPraticaContatoreNotFound, in.IdPratica)
		}

		id, err := tx.Insert(ctx, s.insert, values(smsCreateFields(in))...)
		if err != nil {
			return nil, err
		}
		out := &model.SMS{Id: id, SMSCreate: *in}
		if _, err := tx.Get(ctx, s.segment, []any{id}, &out.NrSMS); err != nil {
			return nil, err
		}
		return out, nil
	})
}
