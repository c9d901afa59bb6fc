package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are JSON numbers, as clients of the service expect
	decimal.MarshalJSONWithoutQuotes = true
}

// Pratica is a debt-collection practice.
type Pratica struct {
	Contatore        int64            `json:"contatore"`
	CodicePratica    *string          `json:"codice_pratica"`
	CodiceCliente    *string          `json:"codice_cliente"`
	Vocativo         *string          `json:"vocativo"`
	Cognome          *string          `json:"cognome"`
	Nome             *string          `json:"nome"`
	DataNascita      *Date            `json:"data_nascita"`
	RagioneSociale   *string          `json:"ragione_sociale"`
	Indirizzo        *string          `json:"indirizzo"`
	Cap              *string          `json:"cap"`
	Citta            *string          `json:"citta"`
	Provincia        *string          `json:"provincia"`
	Mandante         *string          `json:"mandante"`
	Intervento       *string          `json:"intervento"`
	Email            *string          `json:"email"`
	Telefono1        *string          `json:"telefono1"`
	Telefono2        *string          `json:"telefono2"`
	Telefono3        *string          `json:"telefono3"`
	Telefono4        *string          `json:"telefono4"`
	Telefono5        *string          `json:"telefono5"`
	Telefono6        *string          `json:"telefono6"`
	Telefono7        *string          `json:"telefono7"`
	Telefono8        *string          `json:"telefono8"`
	UserM3           *float64         `json:"user_m3"`
	EmailRX1         *string          `json:"EmailRX1"`
	EsitoPrioritario *string          `json:"EsitoPrioritario"`
	ScadenzaMandato  *Timestamp       `json:"scadenza_mandato"`
	SeatImportoOrig  *decimal.Decimal `json:"seat_importoOrig"`
	Posizione        *string          `json:"posizione"`
	Esattore         *string          `json:"esattore"`
}

// PraticaCreate is the payload of a new practice. The contatore is assigned
// by the database.
type PraticaCreate struct {
	CodicePratica   string           `json:"codice_pratica" binding:"required,min=1,max=50,code"`
	CodiceCliente   string           `json:"codice_cliente" binding:"required,min=1,max=50,code"`
	Vocativo        *string          `json:"vocativo" binding:"omitempty,max=10"`
	Cognome         *string          `json:"cognome" binding:"omitempty,max=50,person_name"`
	Nome            *string          `json:"nome" binding:"omitempty,max=50,person_name"`
	DataNascita     *Date            `json:"data_nascita"`
	RagioneSociale  *string          `json:"ragione_sociale" binding:"omitempty,max=100"`
	Indirizzo       *string          `json:"indirizzo" binding:"omitempty,max=200"`
	Cap             *string          `json:"cap" binding:"omitnil,cap"`
	Citta           *string          `json:"citta" binding:"omitempty,max=50"`
	Provincia       *string          `json:"provincia" binding:"omitnil,len=2,provincia"`
	Mandante        *string          `json:"mandante"`
	Intervento      *string          `json:"intervento"`
	Email           *string          `json:"email" binding:"omitempty,email,max=100"`
	Telefono1       *string          `json:"telefono1" binding:"omitempty,phone"`
	Telefono2       *string          `json:"telefono2" binding:"omitempty,phone"`
	Telefono3       *string          `json:"telefono3" binding:"omitempty,phone"`
	Telefono4       *string          `json:"telefono4" binding:"omitempty,phone"`
	Telefono5       *string          `json:"telefono5" binding:"omitempty,phone"`
	Telefono6       *string          `json:"telefono6" binding:"omitempty,phone"`
	Telefono7       *string          `json:"telefono7" binding:"omitempty,phone"`
	Telefono8       *string          `json:"telefono8" binding:"omitempty,phone"`
	UserM3          *float64         `json:"user_m3" binding:"omitempty,gte=0"`
	EmailRX1        *string          `json:"EmailRX1" binding:"omitempty,email,max=100"`
	ScadenzaMandato *Timestamp       `json:"scadenza_mandato"`
	SeatImportoOrig *decimal.Decimal `json:"seat_importoOrig"`
	Posizione       *string          `json:"posizione" binding:"omitempty,max=25"`
	Esattore        *string          `json:"esattore" binding:"omitempty,max=3"`
}

// Normalize prepares the payload for validation: blank e-mail addresses
// become null, codes and provincia are upper-cased and names title-cased.
// Other blank strings are kept; cap and provincia then fail validation.
func (p *PraticaCreate) Normalize() {
	p.CodicePratica = strings.ToUpper(strings.TrimSpace(p.CodicePratica))
	p.CodiceCliente = strings.ToUpper(strings.TrimSpace(p.CodiceCliente))

	blankToNil(&p.Email)
	blankToNil(&p.EmailRX1)

	upper(p.Provincia)
	title(p.Cognome)
	title(p.Nome)
}

// Pratica returns the stored record for p under contatore.
func (p *PraticaCreate) Pratica(contatore int64) *Pratica {
	return &Pratica{
		Contatore:       contatore,
		CodicePratica:   &p.CodicePratica,
		CodiceCliente:   &p.CodiceCliente,
		Vocativo:        p.Vocativo,
		Cognome:         p.Cognome,
		Nome:            p.Nome,
		DataNascita:     p.DataNascita,
		RagioneSociale:  p.RagioneSociale,
		Indirizzo:       p.Indirizzo,
		Cap:             p.Cap,
		Citta:           p.Citta,
		Provincia:       p.Provincia,
		Mandante:        p.Mandante,
		Intervento:      p.Intervento,
		Email:           p.Email,
		Telefono1:       p.Telefono1,
		Telefono2:       p.Telefono2,
		Telefono3:       p.Telefono3,
		Telefono4:       p.Telefono4,
		Telefono5:       p.Telefono5,
		Telefono6:       p.Telefono6,
		Telefono7:       p.Telefono7,
		Telefono8:       p.Telefono8,
		UserM3:          p.UserM3,
		EmailRX1:        p.EmailRX1,
		ScadenzaMandato: p.ScadenzaMandato,
		SeatImportoOrig: p.SeatImportoOrig,
		Posizione:       p.Posizione,
		Esattore:        p.Esattore,
	}
}

// PraticaStatusUpdate sets the priority outcome, stored as EsitoFonia.
type PraticaStatusUpdate struct {
	EsitoPrioritario string `json:"EsitoPrioritario" binding:"required,min=1,max=3"`
}

// Normalize trims the outcome code.
func (u *PraticaStatusUpdate) Normalize() {
	u.EsitoPrioritario = strings.TrimSpace(u.EsitoPrioritario)
}
