package service

import (
	"context"
	"database/sql"

	"github.com/joao-brasil/collectflow/internal/model"
	"github.com/joao-brasil/collectflow/internal/uow"
)

func emailFields(e *model.EMail) []field {
	return []field{
		{"IdEMail", &e.IdEMail},
		{"Agente", &e.Agente},
		{"Data", &e.Data},
		{"Ora", &e.Ora},
		{"NomeMittente", &e.NomeMittente},
		{"Mittente", &e.Mittente},
		{"Destinatario", &e.Destinatario},
		{"DestinatarioCC", &e.DestinatarioCC},
		{"Oggetto", &e.Oggetto},
		{"Messaggio", &e.Messaggio},
		{"Allegati", &e.Allegati},
		{"MailerType", &e.MailerType},
		{"IdMessage", &e.IdMessage},
		{"IdResponse", &e.IdResponse},
		{"Response", &e.Response},
		{"Error", &e.Error},
		{"Applicativo", &e.Applicativo},
		{"IdPratica", &e.IdPratica},
	}
}

func emailCreateFields(c *model.EMailCreate) []field {
	return []field{
		{"Agente", c.Agente},
		{"Data", c.Data},
		{"Ora", c.Ora},
		{"NomeMittente", c.NomeMittente},
		{"Mittente", c.Mittente},
		{"Destinatario", c.Destinatario},
		{"DestinatarioCC", c.DestinatarioCC},
		{"Oggetto", c.Oggetto},
		{"Messaggio", c.Messaggio},
		{"Allegati", c.Allegati},
		{"MailerType", c.MailerType},
		{"IdMessage", c.IdMessage},
		{"IdResponse", c.IdResponse},
		{"Response", c.Response},
		{"Error", c.Error},
		{"Applicativo", c.Applicativo},
		{"IdPratica", c.IdPratica},
	}
}

// Email handles the email log of practices.
type Email struct {
	uow    *uow.UnitOfWork
	exists string
	list   string
	insert string
}

// NewEmail creates the email handler.
func NewEmail(u *uow.UnitOfWork) *Email {
	d := u.Dialect()
	table := d.Table(schemaDBO, tableEMail)
	return &Email{
		uow:    u,
		exists: praticaExistsSQL(d),
		list: selectSQL(d, table, columns(emailFields(&model.EMail{})), where(d, "IdPratica")) +
			" ORDER BY " + d.Quote("IdEMail"),
		insert: d.InsertSQL(table, columns(emailCreateFields(&model.EMailCreate{})), "IdEMail"),
	}
}

// List returns the emails of a practice.
func (s *Email) List(ctx context.Context, contatore int64) ([]*model.EMail, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) ([]*model.EMail, error) {
		ok, err := praticaExists(ctx, tx, s.exists, contatore)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound(msgPraticaContatoreNotFound, contatore)
		}

		out := []*model.EMail{}
		err = tx.Select(ctx, s.list, []any{contatore}, func(rows *sql.Rows) error {
			var e model.EMail
			if err := rows.Scan(values(emailFields(&e))...); err != nil {
				return err
			}
			if e.DestinatarioCC != nil && *e.DestinatarioCC == "" {
				e.DestinatarioCC = nil
			}
			out = append(out, &e)
			return nil
		})
		return out, err
	})
}

// Create logs an email against a practice, which must exist.
func (s *Email) Create(ctx context.Context, in *model.EMailCreate) (*model.EMail, error) {
	return uow.Run(ctx, s.uow, func(ctx context.Context, tx *uow.Tx) (*model.EMail, error) {
		ok, err := praticaExists(ctx, tx, s.exists, in.IdPratica)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid(msgPraticaContatoreNotFound, in.IdPratica)
		}

		id, err := tx.Insert(ctx, s.insert, values(emailCreateFields(in))...)
		if err != nil {
			return nil, err
		}
		return &model.EMail{IdEMail: id, EMailCreate: *in}, nil
	})
}
