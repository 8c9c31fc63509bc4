package mail

// CampaignEmailData feeds templates/campaign.html.
type CampaignEmailData struct {
	Paragraphs []string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	dialer Dialer
}
