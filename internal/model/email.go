package model

// EMailCreate is the payload of an email logged against a practice.
type EMailCreate struct {
	Agente         string  `json:"Agente" binding:"required"`
	Data           *Date   `json:"Data" binding:"required"`
	Ora            *Clock  `json:"Ora" binding:"required"`
	NomeMittente   string  `json:"NomeMittente" binding:"required"`
	Mittente       string  `json:"Mittente" binding:"required"`
	Destinatario   string  `json:"Destinatario" binding:"required"`
	DestinatarioCC *string `json:"DestinatarioCC" binding:"omitempty,min=1"`
	Oggetto        string  `json:"Oggetto" binding:"required,max=100"`
	Messaggio      string  `json:"Messaggio" binding:"required"`
	Allegati       *string `json:"Allegati" binding:"omitempty,min=1"`
	MailerType     *string `json:"MailerType" binding:"omitempty,min=1"`
	IdMessage      *string `json:"IdMessage" binding:"omitempty,min=1"`
	IdResponse     *string `json:"IdResponse"`
	Response       *string `json:"Response"`
	Error          *string `json:"Error"`
	Applicativo    *string `json:"Applicativo" binding:"omitempty,min=1"`
	IdPratica      int64   `json:"IdPratica" binding:"required"`
}

// EMail is a stored email.
type EMail struct {
	IdEMail int64 `json:"IdEMail"`
	EMailCreate
}
