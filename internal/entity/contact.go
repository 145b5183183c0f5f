package entity

// ContactRequest is the body of POST /api/v1/send-message.
type ContactRequest struct {
	Content        string `json:"content" validate:"required"`
	SenderMail     string `json:"sender_mail" validate:"required,email,max=254"`
	SenderFullName string `json:"sender_full_name" validate:"required"`

	ClientIdentity string `json:"-"`
}

// ContactResponse is returned when the message was handed to the mail relay.
type ContactResponse struct {
	Details string `json:"details"`
}

// MailMessage is what the contact use case hands to the mail connector.
type MailMessage struct {
	ID      string
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
}
