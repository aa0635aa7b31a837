package models

// MailMessage задание на отправку письма, передаваемое через очередь.
type MailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}
