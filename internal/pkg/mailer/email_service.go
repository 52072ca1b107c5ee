package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendQuoteConfirmation(toEmail string, quote QuoteSummary) error
}

// QuoteSummary is what the confirmation mail shows.
type QuoteSummary struct {
	QuoteID    string
	ItemsCount int
	Phone      string
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	clientURL   string
}

func NewEmailService(host string, port int, username, password, senderName, clientURL string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
		clientURL:   clientURL,
	}
}

func (s *emailService) SendQuoteConfirmation(toEmail string, quote QuoteSummary) error {
	if s.dialer.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "搬家报价请求已提交")
	m.SetBody("text/html", quoteBody(quote, s.clientURL))

	return s.dialer.DialAndSend(m)
}

func quoteBody(q QuoteSummary, clientURL string) string {
	contact := ""
	if q.Phone != "" {
		contact = fmt.Sprintf("<p>搬家公司会通过 %s 与您联系。</p>", html.EscapeString(q.Phone))
	}
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>您的搬家报价请求已提交</h2>
			<p>报价编号：<strong>%s</strong></p>
			<p>物品数量：%d 件</p>
			%s
			<p>我们将尽快为您联系搬家公司获取报价。</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">返回 ERABU</a>
		</div>
	`, html.EscapeString(q.QuoteID), q.ItemsCount, contact, html.EscapeString(clientURL))
}
