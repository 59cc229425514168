package utils

import (
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"
)

func smtpClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST non configuré")
	}

	return mail.NewClient(host,
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
}

func sender() string {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@medimart.co.za"
	}
	return from
}

// SendReceiptEmail envoie le reçu de paiement HTML
func SendReceiptEmail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(sender()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := smtpClient()
	if err != nil {
		return err
	}

	log.Println("📤 Envoi du reçu à", to)
	return client.DialAndSend(msg)
}

// SendResetEmail envoie le lien de réinitialisation de mot de passe généré
// par le fournisseur d'identité.
func SendResetEmail(to, link string) error {
	msg := mail.NewMsg()

	if err := msg.From(sender()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Reset your Medimart password")
	msg.SetBodyString(mail.TypeTextHTML, fmt.Sprintf(`
		<p>We received a request to reset your password.</p>
		<p><a href="%s">Click here to choose a new password.</a></p>
		<p>If you did not ask for this, you can ignore this email.</p>`, link))

	client, err := smtpClient()
	if err != nil {
		return err
	}

	log.Println("📤 Envoi du lien de réinitialisation à", to)
	return client.DialAndSend(msg)
}
