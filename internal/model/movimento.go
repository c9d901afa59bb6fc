package model

import "github.com/shopspring/decimal"

// Movimento is one collection activity recorded against a practice.
type Movimento struct {
	ID         int64            `json:"id"`
	Data       Timestamp        `json:"data"`
	Ora        Timestamp        `json:"ora"`
	Contatore  int64            `json:"contatore"`
	Codagenzia *string          `json:"codagenzia"`
	Codesa     string           `json:"codesa"`
	Nomeag     string           `json:"nomeag"`
	Esito      string           `json:"esito"`
	Descresito string           `json:"descresito"`
	Flagesito  bool             `json:"flagesito"`
	Note       *string          `json:"note"`
	Datapag    *Timestamp       `json:"datapag"`
	Importopag *decimal.Decimal `json:"importopag"`
	Orarecall  *Timestamp       `json:"orarecall"`
	Tel1       *string          `json:"tel1"`
}

// MovimentoCreate is the payload of a new movement.
type MovimentoCreate struct {
	Data       *Timestamp       `json:"data" binding:"required"`
	Ora        *Timestamp       `json:"ora" binding:"required"`
	Contatore  int64            `json:"contatore" binding:"required"`
	Codagenzia *string          `json:"codagenzia" binding:"omitempty,max=3"`
	Codesa     string           `json:"codesa" binding:"required,max=3"`
	Nomeag     string           `json:"nomeag" binding:"required"`
	Esito      string           `json:"esito" binding:"required"`
	Descresito string           `json:"descresito" binding:"required"`
	Flagesito  *bool            `json:"flagesito" binding:"required"`
	Note       *string          `json:"note"`
	Datapag    *Timestamp       `json:"datapag"`
	Importopag *decimal.Decimal `json:"importopag"`
	Orarecall  *Timestamp       `json:"orarecall"`
	Tel1       *string          `json:"tel1" binding:"omitempty,max=20"`
}

// Movimento returns the stored record for m under id. Required fields must
// have passed validation.
func (m *MovimentoCreate) Movimento(id int64) *Movimento {
	return &Movimento{
		ID:         id,
		Data:       *m.Data,
		Ora:        *m.Ora,
		Contatore:  m.Contatore,
		Codagenzia: m.Codagenzia,
		Codesa:     m.Codesa,
		Nomeag:     m.Nomeag,
		Esito:      m.Esito,
		Descresito: m.Descresito,
		Flagesito:  *m.Flagesito,
		Note:       m.Note,
		Datapag:    m.Datapag,
		Importopag: m.Importopag,
		Orarecall:  m.Orarecall,
		Tel1:       m.Tel1,
	}
}
