package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// A job either carries a rendered Subject/Text/HTML or names a Template with its Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "welcome" or "password_reset"
	Data     map[string]any `json:"data,omitempty"`
}

// Valid reports whether the job has a recipient and something to render or send.
func (j EmailJob) Valid() bool {
	if j.To == "" {
		return false
	}
	return j.Template != "" || j.Text != "" || j.HTML != ""
}
