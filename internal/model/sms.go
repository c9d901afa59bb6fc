package model

// SMSCreate is the payload of a text message logged against a practice.
type SMSCreate struct {
	Data           *Date   `json:"Data" binding:"required"`
	Ora            *Clock  `json:"Ora" binding:"required"`
	CodAg          *string `json:"CodAg" binding:"omitempty,min=1,max=3"`
	Mittente       *string `json:"Mittente" binding:"omitempty,min=1"`
	Destinatario   *string `json:"Destinatario" binding:"omitempty,min=1"`
	NrTel          *string `json:"NrTel" binding:"omitempty,min=1"`
	Testo          string  `json:"Testo" binding:"required"`
	IdSpedizione   *string `json:"IdSpedizione" binding:"omitempty,min=1"`
	Stato          *string `json:"Stato" binding:"omitempty,min=1"`
	FlagAuto       *bool   `json:"FlagAuto"`
	IdPratica      int64   `json:"IdPratica" binding:"required"`
	FlagDaSpedire  *bool   `json:"FlagDaSpedire"`
	DataSpedizione *Date   `json:"DataSpedizione"`
	Fornitore      *string `json:"Fornitore" binding:"omitempty,min=1"`
	Applicazione   *string `json:"Applicazione" binding:"omitempty,min=1"`
	Interno        *bool   `json:"Interno"`
	IdTestoSMS     *int64  `json:"IdTestoSMS"`
}

// SMS is a stored text message. NrSMS, the segment count, is computed by
// the database.
type SMS struct {
	Id int64 `json:"Id"`
	SMSCreate
	NrSMS int `json:"NrSMS"`
}
